package dtos

// ----------------------
// Signing commands
// ----------------------

// EnterCodeRequest carries the current contents of the code input. The
// buffer may be partial; submission is a separate command.
type EnterCodeRequest struct {
	Code string `json:"code" validate:"omitempty,max=6,numeric"`
}

type CancelSigningResponse struct {
	Message string `json:"message"`
}
