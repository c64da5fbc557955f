// services/admission_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"arcade-economy-system/errs"
)

// Action names checked against the admission service before mutating
// operations run.
const (
	ActionCreateSession = "session.create"
	ActionSubmitScore   = "score.submit"
	ActionAwardTokens   = "tokens.award"
	ActionPurchaseItem  = "store.purchase"
)

// AdmissionClient asks an external policy service whether an action is
// allowed for a (tenant, user). A rejection aborts the operation before any
// mutation. With no base URL configured the check passes everything.
type AdmissionClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewAdmissionClient(baseURL, token string) *AdmissionClient {
	if baseURL == "" {
		log.Println("⚠️  ADMISSION_SERVICE_URL not set — admission checks disabled")
	}
	return &AdmissionClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type admissionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Allow calls /admission/check on the policy service.
func (c *AdmissionClient) Allow(tenantID, userID, action string) error {
	if c == nil || c.BaseURL == "" {
		return nil
	}

	url := fmt.Sprintf("%s/admission/check", c.BaseURL)
	reqBody := map[string]string{
		"tenant_id": tenantID,
		"user_id":   userID,
		"action":    action,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err, "failed to build admission request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err, "admission service unreachable")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		log.Printf("AdmissionService /check returned %d: %s", resp.StatusCode, string(body))
		return errs.Newf(errs.CodeInternal, "admission check failed: %d", resp.StatusCode)
	}

	var out admissionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return errs.Wrap(errs.CodeInternal, err, "invalid admission response")
	}
	if !out.Allowed {
		if out.Reason == "" {
			out.Reason = "action not permitted"
		}
		return errs.Newf(errs.CodeForbidden, "%s rejected: %s", action, out.Reason)
	}
	return nil
}
