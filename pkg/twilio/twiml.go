package twilio

import (
	"encoding/xml"
	"fmt"
)

const (
	DefaultVoice    = "Polly.Joanna"
	DefaultLanguage = "en-US"
)

// Response is a TwiML document built verb by verb.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather collects caller speech and posts it to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr,omitempty"`
	Input         string   `xml:"input,attr"`
	Language      string   `xml:"language,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Prompt        *Say     `xml:",omitempty"`
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

// NewResponse creates an empty TwiML response.
func NewResponse() *Response {
	return &Response{}
}

// Say adds a Say verb with the default voice.
func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, Say{Voice: DefaultVoice, Language: DefaultLanguage, Text: text})
	return r
}

// Gather adds a speech Gather verb posting to action, optionally speaking
// prompt while it listens.
func (r *Response) Gather(action, prompt string, timeout int) *Response {
	if timeout <= 0 {
		timeout = 5
	}
	g := Gather{
		Action:        action,
		Method:        "POST",
		Input:         "speech",
		Language:      DefaultLanguage,
		Timeout:       timeout,
		SpeechTimeout: "auto",
	}
	if prompt != "" {
		g.Prompt = &Say{Voice: DefaultVoice, Language: DefaultLanguage, Text: prompt}
	}
	r.Verbs = append(r.Verbs, g)
	return r
}

// Redirect adds a Redirect verb
func (r *Response) Redirect(url string) *Response {
	r.Verbs = append(r.Verbs, Redirect{URL: url})
	return r
}

// Hangup adds a Hangup verb
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

// Marshal renders the document with an XML declaration.
func (r *Response) Marshal() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TwiML: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
