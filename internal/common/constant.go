package common

// Local cache collection keys. Each key holds one JSON-serialized collection.
const (
	CollectionMedications = "medications"
	CollectionCommonNames = "common_medications"
)
