package clinicapi

import (
	"encoding/json"
	"net/http"
)

// Credentials are the API's own session cookies for one portal user.
type Credentials []*http.Cookie

type storedCookie struct {
	Name  string `json:"n"`
	Value string `json:"v"`
}

// FromCookies keeps only the name and value of each cookie; that is all
// the API needs echoed back.
func FromCookies(cookies []*http.Cookie) Credentials {
	out := make(Credentials, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// Encode serialises credentials for session storage.
func (cr Credentials) Encode() (string, error) {
	list := make([]storedCookie, 0, len(cr))
	for _, ck := range cr {
		list = append(list, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCredentials reverses Encode.
func DecodeCredentials(s string) (Credentials, error) {
	var list []storedCookie
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	out := make(Credentials, 0, len(list))
	for _, sc := range list {
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	return out, nil
}
