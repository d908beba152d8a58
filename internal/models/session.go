package models

// Session is the identity provider's view of the signed-in account. A nil
// *Session means nobody is signed in.
type Session struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}
