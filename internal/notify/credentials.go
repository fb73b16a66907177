// Package notify sends the messages that follow an onboarding: the
// credential email over SES and the meeting confirmation SMS over SNS.
package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// ProspectLookup resolves the recipient of a credential email.
type ProspectLookup interface {
	GetProspect(ctx context.Context, id string) (*models.ProspectDraft, error)
}

type credentialTemplate struct {
	subject string
	body    *template.Template
}

var credentialTemplates = map[models.EmailChoice]credentialTemplate{
	models.EmailWarmFollowUp: {
		subject: "Following up on our conversation",
		body: template.Must(template.New("exchange").Parse(`Hello {{.Name}},

Thank you for the time you gave us. As discussed, {{.Company}} now has an
account on our platform, where you will find the eligibility results and
the meetings we planned together.

Sign in at {{.PortalURL}} with {{.Email}}. Activation code: {{.Code}}
`)),
	},
	models.EmailColdIntroduction: {
		subject: "Your account is ready",
		body: template.Must(template.New("presentation").Parse(`Hello {{.Name}},

We help companies like {{.Company}} identify the funding and tax
reductions they are entitled to, and connect them with the right experts.

An account has been prepared for you. Sign in at {{.PortalURL}} with
{{.Email}}. Activation code: {{.Code}}
`)),
	},
}

type credentialData struct {
	Name      string
	Company   string
	Email     string
	PortalURL string
	Code      string
}

// CredentialMailer renders and sends the credential email of a prospect.
type CredentialMailer struct {
	sender    EmailSender
	prospects ProspectLookup
	from      string
	portalURL string
	logger    logger.Logger
	newCode   func() string
}

func NewCredentialMailer(sender EmailSender, prospects ProspectLookup, from, portalURL string, log logger.Logger) *CredentialMailer {
	return &CredentialMailer{
		sender:    sender,
		prospects: prospects,
		from:      from,
		portalURL: portalURL,
		logger:    log.WithFields(map[string]interface{}{"component": "credential-mailer"}),
		newCode:   uuid.NewString,
	}
}

// Render builds the email for variant without sending it.
func (m *CredentialMailer) Render(p models.ProspectDraft, variant models.EmailChoice) (*models.CredentialEmail, error) {
	tpl, ok := credentialTemplates[variant]
	if !ok {
		return nil, errors.NewFieldValidationError("emailType", fmt.Sprintf("no credential template for %q", variant))
	}
	if p.DecisionMakerEmail == "" {
		return nil, errors.NewFieldValidationError("decisionMakerEmail", "prospect has no email address")
	}

	var body strings.Builder
	err := tpl.body.Execute(&body, credentialData{
		Name:      p.DecisionMakerName,
		Company:   p.CompanyName,
		Email:     p.DecisionMakerEmail,
		PortalURL: m.portalURL,
		Code:      m.newCode(),
	})
	if err != nil {
		return nil, fmt.Errorf("render credential email: %w", err)
	}
	return &models.CredentialEmail{
		ProspectID: p.ID,
		To:         p.DecisionMakerEmail,
		Variant:    variant,
		Subject:    tpl.subject,
		Body:       body.String(),
	}, nil
}

// Send sends the variant to the prospect's decision maker and
// returns the SES message id.
func (m *CredentialMailer) Send(ctx context.Context, prospectID string, variant models.EmailChoice) (string, error) {
	p, err := m.prospects.GetProspect(ctx, prospectID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", errors.NewProspectNotFoundError(prospectID)
	}
	email, err := m.Render(*p, variant)
	if err != nil {
		return "", err
	}

	out, err := m.sender.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(m.from),
		Destination: &sestypes.Destination{ToAddresses: []string{email.To}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(email.Subject), Charset: awssdk.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(email.Body), Charset: awssdk.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", errors.NewCredentialEmailFailedError(err).WithMetadata("prospectId", prospectID)
	}

	messageID := awssdk.ToString(out.MessageId)
	m.logger.Info("credential email sent", map[string]interface{}{
		"prospectId": prospectID,
		"variant":    string(variant),
		"messageId":  messageID,
	})
	return messageID, nil
}

// SendCredentials is Send without the message id, for the wizard.
func (m *CredentialMailer) SendCredentials(ctx context.Context, prospectID string, variant models.EmailChoice) error {
	_, err := m.Send(ctx, prospectID, variant)
	return err
}
