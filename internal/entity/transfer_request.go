package entity

// TransferRequest is one input triple: move case CaseNumber and its open tasks
// from OldOwnerID to NewOwnerID. CaseNumber is the identity.
type TransferRequest struct {
	CaseNumber string `json:"case_number"`
	OldOwnerID string `json:"old_owner_id"`
	NewOwnerID string `json:"new_owner_id"`
}
