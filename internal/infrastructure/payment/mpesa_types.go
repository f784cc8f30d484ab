package payment

import "encoding/json"

// mpesaTokenResponse is the OAuth client credentials grant response
type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// mpesaSTKPushRequest is the STK Push process request body
type mpesaSTKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// mpesaSTKPushResponse is the synchronous acknowledgement of an STK Push
type mpesaSTKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// mpesaSTKQueryRequest is the STK Push status query body
type mpesaSTKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// mpesaSTKQueryResponse is the STK Push status query result.
// ResultCode is only present once the charge has resolved; while the
// payer is still on the PIN prompt Daraja returns an errorCode instead.
type mpesaSTKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// mpesaErrorResponse is the Daraja error envelope
type mpesaErrorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// mpesaCallbackEnvelope is the asynchronous STK Push result pushed to the
// registered callback URL
type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback mpesaSTKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// mpesaSTKCallback carries the final result of an STK Push charge
type mpesaSTKCallback struct {
	MerchantRequestID string             `json:"MerchantRequestID"`
	CheckoutRequestID string             `json:"CheckoutRequestID"`
	ResultCode        int                `json:"ResultCode"`
	ResultDesc        string             `json:"ResultDesc"`
	CallbackMetadata  *mpesaCallbackMeta `json:"CallbackMetadata,omitempty"`
}

// mpesaCallbackMeta is the metadata item list present on successful charges
type mpesaCallbackMeta struct {
	Item []mpesaCallbackItem `json:"Item"`
}

// mpesaCallbackItem is a single name/value metadata entry.
// Value is a json.Number for Amount, PhoneNumber and TransactionDate,
// and a string for MpesaReceiptNumber.
type mpesaCallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Daraja STK Push result codes
const (
	mpesaResultSuccess           = 0
	mpesaResultInsufficientFunds = 1
	mpesaResultUserCancelled     = 1032
	mpesaResultTimeout           = 1037
)
