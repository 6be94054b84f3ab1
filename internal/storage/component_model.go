package storage

type ModelKind string

const (
	KindController     ModelKind = "controller"
	KindMechanicalUnit ModelKind = "mechanical_unit"
	KindDriveUnit      ModelKind = "drive_unit"
	KindExternalAxis   ModelKind = "external_axis"
)

func (k ModelKind) Valid() bool {
	switch k {
	case KindController, KindMechanicalUnit, KindDriveUnit, KindExternalAxis:
		return true
	}
	return false
}

// Level is a maintenance depth.
type Level string

const (
	Level1      Level = "1"
	Level2Lower Level = "2-lower"
	Level2Upper Level = "2-upper"
	Level3      Level = "3"
)

func (l Level) Valid() bool {
	switch l {
	case Level1, Level2Lower, Level2Upper, Level3:
		return true
	}
	return false
}

// DefaultLevels is the level set a new model of kind k starts with.
func DefaultLevels(k ModelKind) []Level {
	switch k {
	case KindController:
		return []Level{Level1, Level2Lower, Level3}
	case KindMechanicalUnit:
		return []Level{Level1, Level2Lower, Level2Upper, Level3}
	default:
		return []Level{Level1, Level2Lower}
	}
}

// MandatoryLevels can never be removed from a model of kind k.
func MandatoryLevels(ModelKind) []Level {
	return []Level{Level1}
}

type Manufacturer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ComponentModel struct {
	ID             int64     `json:"id"`
	ManufacturerID int64     `json:"manufacturer_id"`
	Kind           ModelKind `json:"kind"`
	Name           string    `json:"name"`
	Levels         []Level   `json:"levels"`
}

// HasLevel reports whether l applies to the model.
func (m ComponentModel) HasLevel(l Level) bool {
	for _, lv := range m.Levels {
		if lv == l {
			return true
		}
	}
	return false
}

type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// System is an installed robot cell at a client site.
type System struct {
	ID       int64  `json:"id"`
	ClientID int64  `json:"client_id"`
	Name     string `json:"name"`
	Serial   string `json:"serial"`
	Location string `json:"location"`
}

// PhysicalComponent is one installed unit of a component model inside a system.
type PhysicalComponent struct {
	ID       int64  `json:"id"`
	SystemID int64  `json:"system_id"`
	ModelID  int64  `json:"model_id"`
	Serial   string `json:"serial"`
	Position string `json:"position"`
}
