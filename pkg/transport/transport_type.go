package transport

type TransportType string

//goland:noinspection GoUnusedConst
const (
	TransportTypePublicTransport   TransportType = "public-transport"
	TransportTypeCarsharing        TransportType = "carsharing"
	TransportTypeBus               TransportType = "bus"
	TransportTypeTrain             TransportType = "train"
	TransportTypeTram              TransportType = "tram"
	TransportTypeBike              TransportType = "bike"
	TransportTypeScooter           TransportType = "scooter"
	TransportTypeTaxi              TransportType = "taxi"
	TransportTypeEscooter          TransportType = "escooter"
	TransportTypeCableCar          TransportType = "cablecar"
	TransportTypeAirplane          TransportType = "airplane"
	TransportTypeRegioTrain        TransportType = "regiotrain"
	TransportTypeLongDistanceTrain TransportType = "longdistancetrain"
	TransportTypeSubway            TransportType = "subway"
	TransportTypeBicycle           TransportType = "bicycle"
)

// Categories are the transport types the dashboard tracks, in display order
var Categories = []TransportType{
	TransportTypePublicTransport,
	TransportTypeEscooter,
	TransportTypeCarsharing,
	TransportTypeTaxi,
}

func ParseCategory(value string) (TransportType, bool) {
	for _, category := range Categories {
		if string(category) == value {
			return category, true
		}
	}

	return "", false
}

// IsStopBased reports whether records of this type carry a stop and are named after it
func (t TransportType) IsStopBased() bool {
	switch t {
	case TransportTypePublicTransport, TransportTypeBus, TransportTypeTrain, TransportTypeTram:
		return true
	default:
		return false
	}
}

func (t TransportType) IsKnown() bool {
	switch t {
	case TransportTypePublicTransport, TransportTypeCarsharing, TransportTypeBus, TransportTypeTrain,
		TransportTypeTram, TransportTypeBike, TransportTypeScooter, TransportTypeTaxi, TransportTypeEscooter,
		TransportTypeCableCar, TransportTypeAirplane, TransportTypeRegioTrain, TransportTypeLongDistanceTrain,
		TransportTypeSubway, TransportTypeBicycle:
		return true
	default:
		return false
	}
}
