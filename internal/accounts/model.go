package accounts

type Account struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Emails   []string `json:"emails"`
}
