package aero

import "encoding/json"

// Outcome is a tagged result: either a value that was obtained (possibly an
// empty list, meaning "confirmed nothing"), or an explicit reason why it
// could not be obtained. The zero value is Unavailable with no reason.
type Outcome[T any] struct {
	value  T
	ok     bool
	reason string
}

// Ok wraps an obtained value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

// Unavailable records why a value could not be obtained.
func Unavailable[T any](reason string) Outcome[T] {
	if reason == "" {
		reason = "unavailable"
	}
	return Outcome[T]{reason: reason}
}

// OK reports whether the value was obtained.
func (o Outcome[T]) OK() bool { return o.ok }

// Value returns the obtained value, or the zero value when unavailable.
func (o Outcome[T]) Value() T { return o.value }

// Get returns the value and whether it was obtained.
func (o Outcome[T]) Get() (T, bool) { return o.value, o.ok }

// Reason returns why the value is unavailable ("" when OK).
func (o Outcome[T]) Reason() string {
	if o.ok {
		return ""
	}
	if o.reason == "" {
		return "unavailable"
	}
	return o.reason
}

type outcomeJSON[T any] struct {
	OK     bool   `json:"ok"`
	Value  *T     `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	out := outcomeJSON[T]{OK: o.ok, Reason: o.Reason()}
	if o.ok {
		v := o.value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either the tagged form {"ok":..,"value":..} or a bare
// value, which callers supplying their own data tend to send.
func (o *Outcome[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Unavailable[T]("not supplied")
		return nil
	}

	var tagged struct {
		OK     *bool           `json:"ok"`
		Value  json.RawMessage `json:"value"`
		Reason string          `json:"reason"`
	}
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.OK != nil {
		if !*tagged.OK {
			*o = Unavailable[T](tagged.Reason)
			return nil
		}
		var v T
		if len(tagged.Value) > 0 {
			if err := json.Unmarshal(tagged.Value, &v); err != nil {
				return err
			}
		}
		*o = Ok(v)
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Ok(v)
	return nil
}
