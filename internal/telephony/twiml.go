package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// ContentTypeXML is the Content-Type voice webhook responses use.
const ContentTypeXML = "application/xml"

const (
	consentPrompt = "To proceed with this call, please say 'yes' to confirm you'd like to " +
		"discuss your dental needs, or say 'no' if you'd prefer not to continue."
	noResponseMessage = "I didn't hear a response. Goodbye!"
	declineMessage    = "No problem. Have a great day!"
	voicemailMessage  = "Hello, this is Nova from Premier Dental. We received your " +
		"inquiry about dental services. Please call us back at your " +
		"convenience to schedule your appointment. Thank you!"
)

// InitialTwiML greets the lead and gathers spoken consent before any
// qualification questions are asked.
func InitialTwiML(leadID, greeting string) string {
	var b twimlBuilder
	b.say(greeting)
	b.pause(1)
	b.openGather(fmt.Sprintf("/voice/consent/%s", leadID), "")
	b.say(consentPrompt)
	b.closeGather()
	b.say(noResponseMessage)
	b.hangup()
	return b.String()
}

// ConversationTwiML speaks the assistant's next question and gathers
// the lead's spoken reply.
func ConversationTwiML(leadID, prompt string) string {
	var b twimlBuilder
	b.say(prompt)
	b.openGather(fmt.Sprintf("/voice/process/%s", leadID), "phone_call")
	b.closeGather()
	b.say(noResponseMessage)
	b.hangup()
	return b.String()
}

// EscalationTwiML speaks the escalation message then dials the human
// transfer line.
func EscalationTwiML(leadID, message, transferNumber string) string {
	var b twimlBuilder
	b.say(message)
	b.dial(transferNumber, fmt.Sprintf("/voice/escalation-complete/%s", leadID))
	return b.String()
}

// CompletionTwiML speaks the closing message and hangs up.
func CompletionTwiML(message string) string {
	var b twimlBuilder
	b.say(message)
	b.hangup()
	return b.String()
}

// HangupTwiML ends the call with no further speech.
func HangupTwiML() string {
	var b twimlBuilder
	b.hangup()
	return b.String()
}

// DeclineTwiML ends the call politely when consent is refused.
func DeclineTwiML() string {
	var b twimlBuilder
	b.say(declineMessage)
	b.hangup()
	return b.String()
}

// VoicemailTwiML leaves a short callback message when answering
// machine detection reports a machine. The leading pause waits for
// the beep.
func VoicemailTwiML(answeredBy string) string {
	var b twimlBuilder
	if answeredBy == "machine_start" {
		b.pause(2)
		b.say(voicemailMessage)
	}
	b.hangup()
	return b.String()
}

// twimlBuilder assembles a TwiML <Response> document verb by verb.
type twimlBuilder struct {
	buf bytes.Buffer
}

func (b *twimlBuilder) say(text string) {
	b.buf.WriteString(`<Say voice="alice" language="en-US">`)
	b.writeEscaped(text)
	b.buf.WriteString(`</Say>`)
}

func (b *twimlBuilder) pause(seconds int) {
	fmt.Fprintf(&b.buf, `<Pause length="%d"/>`, seconds)
}

func (b *twimlBuilder) openGather(action, speechModel string) {
	b.buf.WriteString(`<Gather input="speech" timeout="10" speechTimeout="auto" action="`)
	b.writeEscaped(action)
	b.buf.WriteString(`" method="POST"`)
	if speechModel != "" {
		b.buf.WriteString(` speechModel="`)
		b.writeEscaped(speechModel)
		b.buf.WriteString(`"`)
	}
	b.buf.WriteString(`>`)
}

func (b *twimlBuilder) closeGather() {
	b.buf.WriteString(`</Gather>`)
}

func (b *twimlBuilder) dial(number, action string) {
	b.buf.WriteString(`<Dial timeout="30" action="`)
	b.writeEscaped(action)
	b.buf.WriteString(`" method="POST">`)
	b.writeEscaped(number)
	b.buf.WriteString(`</Dial>`)
}

func (b *twimlBuilder) hangup() {
	b.buf.WriteString(`<Hangup/>`)
}

func (b *twimlBuilder) writeEscaped(s string) {
	_ = xml.EscapeText(&b.buf, []byte(s))
}

func (b *twimlBuilder) String() string {
	return `<?xml version="1.0" encoding="UTF-8"?><Response>` + b.buf.String() + `</Response>`
}
