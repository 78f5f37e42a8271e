package payments

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// Envelope is what a webhook delivery claims. Only PaymentID is acted on, and
// only as a pointer for the authoritative refetch.
type Envelope struct {
	// Topic is the delivery discriminator: topic, type or action, whichever
	// the sender used.
	Topic     string
	PaymentID string
	Payload   []byte
}

type rawObject struct {
	ID            json.RawMessage `json:"id"`
	Object        string          `json:"object"`
	PaymentIntent json.RawMessage `json:"payment_intent"`
}

type rawEnvelope struct {
	ID     json.RawMessage `json:"id"`
	Topic  string          `json:"topic"`
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   *struct {
		ID     json.RawMessage `json:"id"`
		Object *rawObject      `json:"object"`
	} `json:"data"`
}

// ParseEnvelope extracts the discriminator and payment pointer from a webhook
// body and its query string. It never fails: a body that is not JSON simply
// yields whatever the query string carries.
//
// Accepted shapes, in order of precedence:
//
//	{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}
//	{"type":"checkout.session.completed","data":{"object":{"payment_intent":"pi_1"}}}
//	{"topic":"payment","data":{"id":"123"}} / {"action":"payment.updated","data":{"id":123}}
//	{"topic":"payment","id":"123"}
//	?topic=payment&id=123 / ?type=payment&data.id=123
func ParseEnvelope(body []byte, query url.Values) Envelope {
	env := Envelope{Payload: body}

	var raw rawEnvelope
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &raw) == nil {
		env.Topic = firstNonEmpty(raw.Topic, raw.Type, raw.Action)
		if raw.Data != nil {
			if raw.Data.Object != nil {
				env.PaymentID = objectPaymentID(raw.Data.Object)
			}
			if env.PaymentID == "" {
				env.PaymentID = idString(raw.Data.ID)
			}
		}
		// A top-level id on a typed event is the event id, not a payment.
		if env.PaymentID == "" && raw.Type == "" {
			env.PaymentID = idString(raw.ID)
		}
	}

	if env.Topic == "" {
		env.Topic = firstNonEmpty(query.Get("topic"), query.Get("type"), query.Get("action"))
	}
	if env.PaymentID == "" {
		env.PaymentID = strings.TrimSpace(firstNonEmpty(query.Get("data.id"), query.Get("id")))
	}
	return env
}

// Relevant reports whether the discriminator can concern a payment. An
// envelope with no discriminator at all is given the benefit of the doubt;
// the refetch decides.
func (e Envelope) Relevant() bool {
	t := strings.ToLower(strings.TrimSpace(e.Topic))
	switch {
	case t == "":
		return true
	case t == "payment", strings.HasPrefix(t, "payment."):
		return true
	case strings.HasPrefix(t, "payment_intent."):
		return true
	case t == "checkout.session.completed",
		t == "checkout.session.async_payment_succeeded",
		t == "checkout.session.async_payment_failed":
		return true
	case t == "charge.succeeded", t == "charge.failed":
		return true
	}
	return false
}

// objectPaymentID picks the PaymentIntent id out of a Stripe data.object.
// Sessions and charges point at their intent; an unpaid session falls back
// to its own id, which the gateway client can resolve.
func objectPaymentID(o *rawObject) string {
	if o.Object == "payment_intent" {
		return idString(o.ID)
	}
	if pi := idString(o.PaymentIntent); pi != "" {
		return pi
	}
	id := idString(o.ID)
	if o.Object == "charge" || strings.HasPrefix(id, "ch_") {
		return ""
	}
	return id
}

// idString accepts a JSON string, a JSON number or an expanded object with an
// "id" field.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(raw, &obj) == nil && len(obj.ID) > 0 && obj.ID[0] != '{' {
			return idString(obj.ID)
		}
	default:
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			if i, err := n.Int64(); err == nil {
				return strconv.FormatInt(i, 10)
			}
			return n.String()
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
