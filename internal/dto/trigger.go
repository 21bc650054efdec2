package dto

type OwnerErrorDTO struct {
	OwnerID string `json:"owner_id"`
	Error   string `json:"error"`
}

// TriggerResponseDTO is the result of one scheduler pass.
type TriggerResponseDTO struct {
	Triggered int             `json:"triggered"`
	Retried   int             `json:"retried"`
	Errors    []OwnerErrorDTO `json:"errors"`
}
