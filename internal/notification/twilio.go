package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"

	"service-booking-backend/config"
)

const twilioAPIHost = "api.twilio.com"

// TwilioCaller places calls through the Twilio Programmable Voice REST API.
type TwilioCaller struct {
	client *twilio.RestClient
	from   string
	twiml  string
}

func NewTwilioCaller(cfg config.VoiceConfig) (*TwilioCaller, error) {
	say, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: cfg.Message, Language: cfg.Language},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build TwiML: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("invalid voice base url %q", cfg.BaseURL)
		}
		if base.Host != twilioAPIHost {
			httpClient.Transport = &baseURLTransport{base: base, next: http.DefaultTransport}
		}
	}

	rest := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	rest.SetAccountSid(cfg.AccountSID)

	return &TwilioCaller{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: rest}),
		from:   cfg.FromNumber,
		twiml:  say,
	}, nil
}

// PlaceCall starts an outbound call to the E.164 number to and returns the
// call SID. The request is bounded by the configured timeout.
func (c *TwilioCaller) PlaceCall(ctx context.Context, to string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetTwiml(c.twiml)

	call, err := c.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("twilio create call: %w", err)
	}
	if call.Sid == nil {
		return "", errors.New("twilio create call: response has no sid")
	}
	return *call.Sid, nil
}

// baseURLTransport sends Twilio API requests to another host, such as a
// local stand-in.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = t.base.Path + req.URL.Path
	out.Host = t.base.Host
	return t.next.RoundTrip(out)
}
