package domain

// Specialization is reference data describing an area of expertise.
type Specialization struct {
	SpecializationID string `json:"id" dynamodbav:"specialization_id"`
	Name             string `json:"name" dynamodbav:"name"`
	Description      string `json:"description" dynamodbav:"description"`
}

// UserSpecialization is a join row between a user and a specialization.
// PK user_id, SK specialization_id — the key schema itself rejects
// duplicate pairs.
type UserSpecialization struct {
	UserID           string `json:"user_id" dynamodbav:"user_id"`
	SpecializationID string `json:"specialization_id" dynamodbav:"specialization_id"`
}
