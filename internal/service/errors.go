package service

import "errors"

var (
	// ErrNoDriverAvailable is returned when no driver can be offered a ride.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrRideConflict is returned when a state-changing update loses a race,
	// e.g. a second driver accepting an already-taken ride.
	ErrRideConflict = errors.New("ride already taken or no longer active")

	// ErrInvalidRideState is returned when an operation is attempted on a
	// ride whose current status does not allow it.
	ErrInvalidRideState = errors.New("ride not in a valid state for this operation")

	// ErrInsufficientFunds is returned when a wallet debit would overdraw
	// the balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrUnauthorized is returned when the acting user is not a participant
	// of the ride.
	ErrUnauthorized = errors.New("user is not a participant of this ride")

	// ErrFeedbackExists is returned when feedback was already left on a ride.
	ErrFeedbackExists = errors.New("feedback already submitted for this ride")

	// ErrRideFull is returned when a pooled ride has no seats left.
	ErrRideFull = errors.New("ride is at passenger capacity")

	// ErrDriverBusy is returned when a driver with an active ride tries to
	// accept another.
	ErrDriverBusy = errors.New("driver already has an active ride")

	// ErrDriverUnavailable is returned when an unavailable driver tries to
	// accept a ride.
	ErrDriverUnavailable = errors.New("driver is not available")

	// ErrNoFareForVehicle is returned when no fare could be resolved for the
	// accepting driver's vehicle type.
	ErrNoFareForVehicle = errors.New("no fare available for vehicle type")

	// ErrNoPriceConfigured is returned when no per-km rate exists for any of
	// the requested vehicle types.
	ErrNoPriceConfigured = errors.New("no price configured for requested vehicle types")

	// ErrInvalidVehicleType is returned when a vehicle type is not recognised.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidPassengerID is returned when passenger ID is empty.
	ErrInvalidPassengerID = errors.New("invalid passenger id")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidDistance is returned when ride distance is zero or negative.
	ErrInvalidDistance = errors.New("invalid ride distance")

	// ErrInvalidAmount is returned when a monetary amount is zero or negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRating is returned when a feedback rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidDiscount is returned when a discount definition is malformed.
	ErrInvalidDiscount = errors.New("invalid discount definition")

	// ErrWithdrawalProcessed is returned when a withdrawal request was
	// already resolved.
	ErrWithdrawalProcessed = errors.New("withdrawal request already processed")

	// ErrBelowMinimumBalance is returned when an operation would leave a
	// driver's wallet below the operating minimum.
	ErrBelowMinimumBalance = errors.New("balance would fall below minimum account requirement")
)

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
