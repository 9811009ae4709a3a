package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/config"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// VerifyResult describes a captcha verification outcome. Score is only
// populated for v3 responses.
type VerifyResult struct {
	OK      bool
	Score   *float64
	Message string
}

// Verifier validates reCAPTCHA v2/v3 tokens against the siteverify API
// and records the decision in the security log.
type Verifier struct {
	cfg     config.RecaptchaConfig
	client  *http.Client
	auditor *Logger
	baseURL string
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg config.RecaptchaConfig, auditor *Logger) *Verifier {
	return &Verifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		auditor: auditor,
		baseURL: recaptchaVerifyURL,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a captcha token for an action. A disabled verifier
// passes everything. Network or API failures fail closed.
func (v *Verifier) Verify(ctx context.Context, token, action, ip string) VerifyResult {
	if v == nil || !v.cfg.Enabled {
		return VerifyResult{OK: true, Message: "captcha disabled"}
	}

	if strings.TrimSpace(v.cfg.SecretKey) == "" || strings.TrimSpace(token) == "" {
		v.auditor.LogBlocked(ctx, "recaptcha_"+action, ip, nil, map[string]any{"reason": "missing token or secret"})
		return VerifyResult{OK: false, Message: "captcha configuration error"}
	}

	body, errPost := v.post(ctx, token, ip)
	if errPost != nil {
		log.WithError(errPost).Warn("security: captcha verify request failed")
		return VerifyResult{OK: false, Message: "captcha verification failed"}
	}

	if !body.Success {
		v.auditor.LogBlocked(ctx, "recaptcha_"+action, ip, nil, map[string]any{"error_codes": body.ErrorCodes})
		return VerifyResult{OK: false, Message: "captcha verification failed"}
	}

	if v.cfg.Version == "v3" {
		score := body.Score
		if score < v.cfg.MinScore {
			v.auditor.LogBlocked(ctx, "recaptcha_"+action, ip, &score, map[string]any{"hostname": body.Hostname})
			return VerifyResult{OK: false, Score: &score, Message: "captcha score too low"}
		}
		v.auditor.LogAllowed(ctx, "recaptcha_"+action, ip, &score)
		return VerifyResult{OK: true, Score: &score}
	}

	v.auditor.LogAllowed(ctx, "recaptcha_"+action, ip, nil)
	return VerifyResult{OK: true}
}

func (v *Verifier) post(ctx context.Context, token, ip string) (*siteverifyResponse, error) {
	form := url.Values{}
	form.Set("secret", v.cfg.SecretKey)
	form.Set("response", token)
	if ip != "" {
		form.Set("remoteip", ip)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, strings.NewReader(form.Encode()))
	if errReq != nil {
		return nil, fmt.Errorf("security: build captcha request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, errDo := v.client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("security: captcha request: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, fmt.Errorf("security: read captcha response: %w", errRead)
	}

	var body siteverifyResponse
	if errDecode := json.Unmarshal(raw, &body); errDecode != nil {
		return nil, fmt.Errorf("security: decode captcha response: %w", errDecode)
	}
	return &body, nil
}
