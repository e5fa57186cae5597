package spec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"
)

type (
	// Mock is a single mockable endpoint with one or more named responses
	Mock struct {
		Identifier string    `json:"identifier,omitempty" yaml:"-"`
		Name       string    `json:"name,omitempty" yaml:"name"`
		Expression string    `json:"expression" yaml:"expression"`
		Method     string    `json:"method" yaml:"method"`
		IsArray    bool      `json:"isArray,omitempty" yaml:"isArray"`
		Responses  Responses `json:"responses" yaml:"responses"`
	}

	// Response is one scenario a mock can answer with
	Response struct {
		Default bool              `json:"default,omitempty" yaml:"default"`
		Status  int               `json:"status,omitempty" yaml:"status"`
		Headers map[string]string `json:"headers,omitempty" yaml:"headers"`
		Data    interface{}       `json:"data,omitempty" yaml:"data"`
		File    string            `json:"file,omitempty" yaml:"file"`
		Delay   int               `json:"delay,omitempty" yaml:"delay"`
	}

	// Scenario pairs a response with the key it was declared under
	Scenario struct {
		Key      string
		Response Response
	}

	// Responses keeps scenarios in the order they were declared
	Responses []Scenario
)

// Clone returns a copy of m sharing no memory with it
func (m *Mock) Clone() *Mock {
	c := *m
	if m.Responses != nil {
		c.Responses = make(Responses, len(m.Responses))
		for i, s := range m.Responses {
			c.Responses[i] = Scenario{Key: s.Key, Response: s.Response.clone()}
		}
	}

	return &c
}

func (r Response) clone() Response {
	if r.Headers != nil {
		headers := make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			headers[k] = v
		}
		r.Headers = headers
	}

	r.Data = cloneData(r.Data)

	return r
}

// cloneData copies the maps and slices JSON and YAML decoding produce
func cloneData(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneData(val)
		}
		return m
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, val := range t {
			m[k] = val
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneData(val)
		}
		return s
	default:
		return v
	}
}

// Get returns the response declared under key
func (r Responses) Get(key string) (Response, bool) {
	for _, s := range r {
		if s.Key == key {
			return s.Response, true
		}
	}

	return Response{}, false
}

// UnmarshalYAML decodes the responses mapping twice, once for declaration order and once for the values.
func (r *Responses) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var order yaml.MapSlice
	if err := unmarshal(&order); err != nil {
		return err
	}

	values := map[string]Response{}
	if err := unmarshal(&values); err != nil {
		return err
	}

	scenarios := make(Responses, 0, len(order))
	for _, item := range order {
		key := fmt.Sprint(item.Key)
		scenarios = append(scenarios, Scenario{Key: key, Response: values[key]})
	}

	*r = scenarios

	return nil
}

// UnmarshalYAML normalizes data so it can later be encoded as JSON
func (r *Response) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Response
	if err := unmarshal((*plain)(r)); err != nil {
		return err
	}

	r.Data = normalize(r.Data)

	return nil
}

// MarshalJSON writes the responses as an object, keys in declaration order
func (r Responses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, s := range r {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(s.Key)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(s.Response)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a responses object keeping its key order
func (r *Responses) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("responses must be an object, got %v", tok)
	}

	scenarios := Responses{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected response key %v", tok)
		}

		var resp Response
		if err := dec.Decode(&resp); err != nil {
			return fmt.Errorf("response %s: %w", key, err)
		}

		scenarios = append(scenarios, Scenario{Key: key, Response: resp})
	}

	*r = scenarios

	return nil
}

// normalize turns the map[interface{}]interface{} values yaml.v2 produces into JSON friendly maps
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []interface{}:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}
