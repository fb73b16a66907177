package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/validation"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SMSPublisher is satisfied by the SNS client wrapper.
type SMSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// MeetingNotifier texts the prospect the dates of their scheduled meetings.
type MeetingNotifier struct {
	publisher SMSPublisher
	senderID  string
	logger    logger.Logger
}

func NewMeetingNotifier(publisher SMSPublisher, senderID string, log logger.Logger) *MeetingNotifier {
	return &MeetingNotifier{
		publisher: publisher,
		senderID:  senderID,
		logger:    log.WithFields(map[string]interface{}{"component": "meeting-notifier"}),
	}
}

// ConfirmationText lists the meeting slots, earliest first as given.
func ConfirmationText(company string, slots []time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d meeting(s) scheduled", company, len(slots))
	for _, s := range slots {
		b.WriteString("\n- ")
		b.WriteString(s.Format("Mon 02/01/2006 15:04"))
	}
	return b.String()
}

// Notify sends one SMS to phone. It reports false without error when the
// number cannot receive SMS.
func (n *MeetingNotifier) Notify(ctx context.Context, phone, company string, slots []time.Time) (bool, error) {
	if len(slots) == 0 || !validation.ValidatePhone(phone) {
		return false, nil
	}

	input := &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(ConfirmationText(company, slots)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: awssdk.String("String"), StringValue: awssdk.String("Transactional")},
		},
	}
	if n.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType: awssdk.String("String"), StringValue: awssdk.String(n.senderID),
		}
	}

	out, err := n.publisher.Publish(ctx, input)
	if err != nil {
		return false, fmt.Errorf("publish meeting sms: %w", err)
	}
	n.logger.Info("meeting confirmation sent", map[string]interface{}{
		"messageId": awssdk.ToString(out.MessageId),
		"meetings":  len(slots),
	})
	return true, nil
}
