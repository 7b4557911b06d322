package runtime

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Env lets the serialization walkers evaluate derived fields, which
// have no stored slot and are computed by a generated method.
type Env interface {
	CallDerived(obj *Object, fn string) (Value, error)
}

// AsJSON renders the object's serializable fields, in declaration
// order, as one JSON object. Class-typed fields recurse.
func AsJSON(obj *Object, reg Registry, env Env) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, obj, reg, env); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(b *strings.Builder, obj *Object, reg Registry, env Env) error {
	b.WriteString("{")
	for i, s := range obj.Class.Serial {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q: ", s.Name)
		v, err := serialValue(obj, s, env)
		if err != nil {
			return err
		}
		if err := writeJSONValue(b, v, reg, env); err != nil {
			return err
		}
	}
	b.WriteString("}")
	return nil
}

func writeJSONValue(b *strings.Builder, v Value, reg Registry, env Env) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case string:
		b.WriteString(strconv.Quote(x))
	case *DString:
		b.WriteString(strconv.Quote(x.Read()))
	case *Object:
		return writeJSON(b, x, reg, env)
	default:
		return fmt.Errorf("unserializable value %v", v)
	}
	return nil
}

// serialValue fetches one serializable field's value: the stored slot
// for plain fields, the computing method's result for derived ones.
func serialValue(obj *Object, s SerialDesc, env Env) (Value, error) {
	if s.Derived == "" {
		return obj.Fields[s.Name], nil
	}
	if env == nil {
		return nil, fmt.Errorf("derived field '%s' needs an evaluation environment", s.Name)
	}
	return env.CallDerived(obj, s.Derived)
}

// FromJSON allocates a new instance and populates every stored
// serializable field from the input. Unknown keys are ignored; a
// missing stored field is a deserialization error. Derived fields are
// never populated.
func FromJSON(desc *Descriptor, input string, reg Registry) (*Object, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		return nil, fmt.Errorf("invalid json for %s: %w", desc.Name, err)
	}
	obj := NewObject(desc)
	for _, s := range desc.Serial {
		if s.Derived != "" {
			continue
		}
		msg, ok := raw[s.Name]
		if !ok {
			return nil, fmt.Errorf("missing field '%s' deserializing %s", s.Name, desc.Name)
		}
		v, err := decodeJSONField(s, msg, reg)
		if err != nil {
			return nil, err
		}
		obj.Fields[s.Name] = v
	}
	return obj, nil
}

func decodeJSONField(s SerialDesc, msg json.RawMessage, reg Registry) (Value, error) {
	switch s.Type {
	case "int":
		var n int32
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return n, nil
	case "float", "double":
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return f, nil
	case "boolean":
		var v bool
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return v, nil
	case "str", "d_str":
		var v string
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return v, nil
	default:
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			return nil, nil
		}
		nested := reg[s.Class]
		if nested == nil {
			return nil, fmt.Errorf("field '%s': unknown class '%s'", s.Name, s.Class)
		}
		return FromJSON(nested, string(msg), reg)
	}
}

// AsXML renders the object as <ClassName> wrapping one
// <name>value</name> element per serializable field.
func AsXML(obj *Object, reg Registry, env Env) (string, error) {
	var b strings.Builder
	if err := writeXML(&b, obj, reg, env); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeXML(b *strings.Builder, obj *Object, reg Registry, env Env) error {
	fmt.Fprintf(b, "<%s>", obj.Class.Name)
	for _, s := range obj.Class.Serial {
		v, err := serialValue(obj, s, env)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "<%s>", s.Name)
		switch x := v.(type) {
		case nil:
			// empty element for null
		case *Object:
			if err := writeXML(b, x, reg, env); err != nil {
				return err
			}
		case *DString:
			xmlEscape(b, x.Read())
		case string:
			xmlEscape(b, x)
		default:
			b.WriteString(Format(x))
		}
		fmt.Fprintf(b, "</%s>", s.Name)
	}
	fmt.Fprintf(b, "</%s>", obj.Class.Name)
	return nil
}

func xmlEscape(b *strings.Builder, s string) {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s)) //nolint:errcheck // strings.Builder never fails
	b.Write(buf.Bytes())
}

// FromXML parses the element form AsXML produces.
func FromXML(desc *Descriptor, input string, reg Registry) (*Object, error) {
	body, err := elementBody(strings.TrimSpace(input), desc.Name)
	if err != nil {
		return nil, err
	}
	obj := NewObject(desc)
	for _, s := range desc.Serial {
		if s.Derived != "" {
			continue
		}
		inner, err := elementBody(body, s.Name)
		if err != nil {
			return nil, fmt.Errorf("missing field '%s' deserializing %s", s.Name, desc.Name)
		}
		v, err := decodeXMLField(s, inner, reg)
		if err != nil {
			return nil, err
		}
		obj.Fields[s.Name] = v
	}
	return obj, nil
}

// elementBody extracts the text between <name> and </name> inside s.
func elementBody(s, name string) (string, error) {
	openTag, closeTag := "<"+name+">", "</"+name+">"
	start := strings.Index(s, openTag)
	if start < 0 {
		return "", fmt.Errorf("element '%s' not found", name)
	}
	rest := s[start+len(openTag):]
	end := strings.LastIndex(rest, closeTag)
	if end < 0 {
		return "", fmt.Errorf("element '%s' not terminated", name)
	}
	return rest[:end], nil
}

func decodeXMLField(s SerialDesc, body string, reg Registry) (Value, error) {
	switch s.Type {
	case "int":
		n, err := strconv.ParseInt(body, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return int32(n), nil
	case "float", "double":
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return f, nil
	case "boolean":
		v, err := strconv.ParseBool(body)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", s.Name, err)
		}
		return v, nil
	case "str", "d_str":
		return xmlUnescape(body), nil
	default:
		if strings.TrimSpace(body) == "" {
			return nil, nil
		}
		nested := reg[s.Class]
		if nested == nil {
			return nil, fmt.Errorf("field '%s': unknown class '%s'", s.Name, s.Class)
		}
		return FromXML(nested, body, reg)
	}
}

var xmlUnescaper = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">", "&#39;", "'", "&#34;", `"`,
	"&#xA;", "\n", "&#xD;", "\r", "&#x9;", "\t",
)

func xmlUnescape(s string) string {
	return xmlUnescaper.Replace(s)
}
