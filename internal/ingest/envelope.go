package ingest

import "encoding/json"

// envelopeShape checks one known wrapper format, returning the inner value
// and whether the shape matched.
type envelopeShape func(doc json.RawMessage) (json.RawMessage, bool)

// Known wrappers, tried in order. New payload shapes slot in here without
// touching the reconciler.
var envelopeShapes = []envelopeShape{unwrapWebhook}

// unwrapWebhook strips the webhook delivery format, which nests the actual
// content under metaData.entry[0].changes[0].value.
func unwrapWebhook(doc json.RawMessage) (json.RawMessage, bool) {
	var wrapper struct {
		MetaData struct {
			Entry []struct {
				Changes []struct {
					Value json.RawMessage `json:"value"`
				} `json:"changes"`
			} `json:"entry"`
		} `json:"metaData"`
	}
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		return nil, false
	}
	if len(wrapper.MetaData.Entry) == 0 || len(wrapper.MetaData.Entry[0].Changes) == 0 {
		return nil, false
	}
	value := wrapper.MetaData.Entry[0].Changes[0].Value
	if len(value) == 0 {
		return nil, false
	}
	return value, true
}

// extractValue unwraps doc if it matches a known envelope shape, otherwise
// the document itself is the value.
func extractValue(doc json.RawMessage) json.RawMessage {
	for _, shape := range envelopeShapes {
		if inner, ok := shape(doc); ok {
			return inner
		}
	}
	return doc
}

// statusEntry is one delivery-state transition from a status batch.
type statusEntry struct {
	ID         string `json:"id"`
	MetaMsgID  string `json:"meta_msg_id"`
	Status     string `json:"status"`
	StatusType string `json:"status_type"`
}

// value returns the transition's status, whichever field the source used.
func (s statusEntry) value() string {
	return firstNonEmpty(s.Status, s.StatusType)
}

// valueDoc is the unwrapped content of one payload document.
type valueDoc struct {
	Statuses []statusEntry     `json:"statuses"`
	Messages []json.RawMessage `json:"messages"`
	Contacts []contactHint     `json:"contacts"`
}

// parseValue classifies an unwrapped value. A bare array whose every element
// carries a status is a status batch in its own right; an array of anything
// else classifies as nothing (caller skips it). Unparseable values error.
func parseValue(value json.RawMessage) (*valueDoc, error) {
	var bare []statusEntry
	if err := json.Unmarshal(value, &bare); err == nil {
		if len(bare) == 0 {
			return &valueDoc{}, nil
		}
		for _, st := range bare {
			if st.value() == "" {
				return &valueDoc{}, nil
			}
		}
		return &valueDoc{Statuses: bare}, nil
	}

	var doc valueDoc
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
