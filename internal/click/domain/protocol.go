package domain

// Gateway error codes returned in the "error" field of every callback response.
const (
	CodeSuccess          = 0
	CodeSignFailed       = -1
	CodeUnknownAction    = -1
	CodeInternal         = -1
	CodeIncorrectAmount  = -2
	CodeAlreadyProcessed = -4
	CodeNotFoundPrepare  = -5
	CodeNotFoundComplete = -6
	CodeCancelled        = -9
)

const (
	NoteSuccess          = "Success"
	NoteSignFailed       = "SIGN CHECK FAILED!"
	NoteUnknownAction    = "Unknown action"
	NoteIncorrectAmount  = "Incorrect parameter amount"
	NoteAlreadyProcessed = "Transaction already processed"
	NoteAlreadyPaid      = "Already paid"
	NoteNotFound         = "Transaction does not exist"
	NoteCancelled        = "Payment cancelled"
	NoteTxCancelled      = "Transaction cancelled"
	NoteInternal         = "Internal error"
)

const (
	ActionPrepare  = "0"
	ActionComplete = "1"
)

// PrepareRequest carries the raw form fields of a prepare callback.
type PrepareRequest struct {
	ClickTransID    string `form:"click_trans_id"`
	ServiceID       string `form:"service_id"`
	ClickPaydocID   string `form:"click_paydoc_id"`
	MerchantTransID string `form:"merchant_trans_id"`
	Amount          string `form:"amount"`
	Action          string `form:"action"`
	Error           string `form:"error"`
	ErrorNote       string `form:"error_note"`
	SignTime        string `form:"sign_time"`
	SignString      string `form:"sign_string"`
}

// CompleteRequest carries the raw form fields of a complete callback.
type CompleteRequest struct {
	ClickTransID      string `form:"click_trans_id"`
	ServiceID         string `form:"service_id"`
	ClickPaydocID     string `form:"click_paydoc_id"`
	MerchantTransID   string `form:"merchant_trans_id"`
	MerchantPrepareID string `form:"merchant_prepare_id"`
	Amount            string `form:"amount"`
	Action            string `form:"action"`
	Error             string `form:"error"`
	ErrorNote         string `form:"error_note"`
	SignTime          string `form:"sign_time"`
	SignString        string `form:"sign_string"`
}

type PrepareResponse struct {
	ClickTransID      string `json:"click_trans_id,omitempty"`
	MerchantTransID   string `json:"merchant_trans_id,omitempty"`
	MerchantPrepareID int64  `json:"merchant_prepare_id,omitempty"`
	Error             int    `json:"error"`
	ErrorNote         string `json:"error_note"`
}

type CompleteResponse struct {
	ClickTransID      string `json:"click_trans_id,omitempty"`
	MerchantTransID   string `json:"merchant_trans_id,omitempty"`
	MerchantConfirmID int64  `json:"merchant_confirm_id,omitempty"`
	Error             int    `json:"error"`
	ErrorNote         string `json:"error_note"`
}
