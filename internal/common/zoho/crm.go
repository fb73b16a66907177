package zoho

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "prospect-onboarding/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v2"

// CRMClient talks to the Zoho CRM Leads module.
type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *httpclient.Client
}

// Lead is the subset of Zoho lead fields filled from a prospect.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Company     string `json:"Company"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	Website     string `json:"Website,omitempty"`
	Designation string `json:"Designation,omitempty"`
	Street      string `json:"Street,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpclient.NewClient(timeout),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

// CreateLead creates a lead and returns its Zoho id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	var resp upsertResponse
	payload := map[string]interface{}{"data": []Lead{*lead}}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads", c.headers(), payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create lead: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", resp.Data[0].Message)
	}
	return resp.Data[0].Details.ID, nil
}

// UpdateLead overwrites the lead's fields.
func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	var resp upsertResponse
	payload := map[string]interface{}{"data": []Lead{*lead}}
	url := fmt.Sprintf("%s/Leads/%s", c.baseURL, leadID)
	if err := c.http.DoJSON(ctx, http.MethodPut, url, c.headers(), payload, &resp); err != nil {
		return fmt.Errorf("failed to update lead %s: %w", leadID, err)
	}

	if len(resp.Data) > 0 && resp.Data[0].Status != "success" {
		return fmt.Errorf("lead update failed: %s", resp.Data[0].Message)
	}
	return nil
}
