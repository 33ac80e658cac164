package domain

// VehicleType represents the category of vehicle a driver operates or a
// passenger requests.
type VehicleType string

const (
	VehicleBike     VehicleType = "BIKE"
	VehicleAuto     VehicleType = "AUTO"
	VehicleCarMini  VehicleType = "CAR_MINI"
	VehicleCarSedan VehicleType = "CAR_SEDAN"
	VehicleCarSUV   VehicleType = "CAR_SUV"

	// VehicleCarAny is a request-only wildcard that expands to all concrete
	// car types during pricing and matching. A driver never registers as it.
	VehicleCarAny VehicleType = "CAR_ANY"
)

// ConcreteVehicleTypes lists every type a driver can operate, in the fixed
// order used to index FareMatrix.
var ConcreteVehicleTypes = [...]VehicleType{
	VehicleBike,
	VehicleAuto,
	VehicleCarMini,
	VehicleCarSedan,
	VehicleCarSUV,
}

// NumConcreteVehicleTypes is the size of the closed concrete type set.
const NumConcreteVehicleTypes = len(ConcreteVehicleTypes)

// carTypes is the expansion of the VehicleCarAny wildcard.
var carTypes = []VehicleType{VehicleCarMini, VehicleCarSedan, VehicleCarSUV}

// IsConcrete reports whether t is a type a driver can actually hold.
func (t VehicleType) IsConcrete() bool {
	return t.index() >= 0
}

// IsValid reports whether t is a member of the closed enum, wildcard included.
func (t VehicleType) IsValid() bool {
	return t.IsConcrete() || t == VehicleCarAny
}

// Expand resolves t to the set of concrete types it covers. A concrete type
// expands to itself.
func (t VehicleType) Expand() []VehicleType {
	if t == VehicleCarAny {
		return carTypes
	}
	if t.IsConcrete() {
		return []VehicleType{t}
	}
	return nil
}

// PoolCapacity is the maximum number of passengers a shareable ride of this
// type can carry.
func (t VehicleType) PoolCapacity() int {
	if t == VehicleCarSUV {
		return 6
	}
	return 4
}

// index returns the FareMatrix slot for t, or -1 for non-concrete types.
func (t VehicleType) index() int {
	for i, ct := range ConcreteVehicleTypes {
		if ct == t {
			return i
		}
	}
	return -1
}
