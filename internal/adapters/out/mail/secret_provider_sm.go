// internal/adapters/out/mail/secret_provider_sm.go
package mail

import (
	"context"
	"errors"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SendGridKeyProviderSM reads the SendGrid API key from Secret Manager.
// Falls back to SENDGRID_API_KEY when no client is wired (local dev).
type SendGridKeyProviderSM struct {
	SM        *secretmanager.Client
	ProjectID string
	SecretID  string
	Version   string
}

func (p *SendGridKeyProviderSM) APIKey(ctx context.Context) (string, error) {
	if p == nil || p.SM == nil {
		if k := strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")); k != "" {
			return k, nil
		}
		return "", errors.New("mail: sendgrid key provider not configured")
	}

	prj := strings.TrimSpace(p.ProjectID)
	if prj == "" {
		return "", errors.New("mail: projectID is empty")
	}
	sid := strings.TrimSpace(p.SecretID)
	if sid == "" {
		sid = "sendgrid-api-key"
	}
	ver := strings.TrimSpace(p.Version)
	if ver == "" {
		ver = "latest"
	}

	name := "projects/" + prj + "/secrets/" + sid + "/versions/" + ver
	resp, err := p.SM.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", errors.New("mail: AccessSecretVersion failed (" + name + "): " + err.Error())
	}
	if resp == nil || resp.Payload == nil {
		return "", errors.New("mail: empty secret payload (" + name + ")")
	}

	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
