package ron

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Minimal XML-RPC codec covering the value types the RON API uses:
// string, int/i4, boolean, double, struct, array and nil.

// Fault is a backend <fault> response. The raw fault string is kept verbatim
// so it can be surfaced inside TransactionStatus.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
}

func marshalCall(method string, args ...any) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString("<methodCall><methodName>")
	buffer.WriteString(method)
	buffer.WriteString("</methodName><params>")

	for _, arg := range args {
		buffer.WriteString("<param>")
		if err := writeValue(&buffer, arg); err != nil {
			return nil, err
		}
		buffer.WriteString("</param>")
	}

	buffer.WriteString("</params></methodCall>")
	return buffer.Bytes(), nil
}

func writeValue(buffer *bytes.Buffer, value any) error {
	buffer.WriteString("<value>")
	defer buffer.WriteString("</value>")

	switch v := value.(type) {
	case nil:
		buffer.WriteString("<nil/>")
	case string:
		buffer.WriteString("<string>")
		_ = xml.EscapeText(buffer, []byte(v))
		buffer.WriteString("</string>")
	case int:
		buffer.WriteString("<int>")
		buffer.WriteString(strconv.Itoa(v))
		buffer.WriteString("</int>")
	case bool:
		if v {
			buffer.WriteString("<boolean>1</boolean>")
		} else {
			buffer.WriteString("<boolean>0</boolean>")
		}
	case float64:
		buffer.WriteString("<double>")
		buffer.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		buffer.WriteString("</double>")
	case map[string]any:
		buffer.WriteString("<struct>")
		// deterministic member order keeps request logs and tests stable
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			buffer.WriteString("<member><name>")
			_ = xml.EscapeText(buffer, []byte(name))
			buffer.WriteString("</name>")
			if err := writeValue(buffer, v[name]); err != nil {
				return err
			}
			buffer.WriteString("</member>")
		}
		buffer.WriteString("</struct>")
	case []any:
		buffer.WriteString("<array><data>")
		for _, item := range v {
			if err := writeValue(buffer, item); err != nil {
				return err
			}
		}
		buffer.WriteString("</data></array>")
	default:
		return fmt.Errorf("unsupported xmlrpc type %T", value)
	}

	return nil
}

type rpcValue struct {
	parsed any
}

type rpcMember struct {
	Name  string   `xml:"name"`
	Value rpcValue `xml:"value"`
}

func (v *rpcValue) UnmarshalXML(decoder *xml.Decoder, start xml.StartElement) error {
	v.parsed = nil
	typed := false

	for {
		token, err := decoder.Token()
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.CharData:
			// bare text inside <value> means string
			if !typed {
				text := strings.TrimSpace(string(t))
				if text != "" {
					v.parsed = text
				}
			}
		case xml.StartElement:
			typed = true
			parsed, err := decodeTyped(decoder, t)
			if err != nil {
				return err
			}
			v.parsed = parsed
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return nil
			}
		}
	}
}

func decodeTyped(decoder *xml.Decoder, start xml.StartElement) (any, error) {
	switch start.Name.Local {
	case "string":
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return nil, err
		}
		return text, nil
	case "int", "i4":
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return nil, err
		}
		number, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("invalid xmlrpc int %q", text)
		}
		return number, nil
	case "boolean":
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return nil, err
		}
		return strings.TrimSpace(text) == "1", nil
	case "double":
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return nil, err
		}
		number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid xmlrpc double %q", text)
		}
		return number, nil
	case "nil":
		return nil, decoder.Skip()
	case "struct":
		var members struct {
			Members []rpcMember `xml:"member"`
		}
		if err := decoder.DecodeElement(&members, &start); err != nil {
			return nil, err
		}
		result := make(map[string]any, len(members.Members))
		for _, member := range members.Members {
			result[member.Name] = member.Value.parsed
		}
		return result, nil
	case "array":
		var data struct {
			Values []rpcValue `xml:"data>value"`
		}
		if err := decoder.DecodeElement(&data, &start); err != nil {
			return nil, err
		}
		result := make([]any, len(data.Values))
		for i, item := range data.Values {
			result[i] = item.parsed
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported xmlrpc element <%s>", start.Name.Local)
	}
}

type methodResponse struct {
	XMLName xml.Name  `xml:"methodResponse"`
	Param   *rpcValue `xml:"params>param>value"`
	Fault   *rpcValue `xml:"fault>value"`
}

func unmarshalResponse(body io.Reader) (any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var response methodResponse
	if err := xml.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("invalid xmlrpc response: %w", err)
	}

	if response.Fault != nil {
		fault := &Fault{}
		if members, ok := response.Fault.parsed.(map[string]any); ok {
			if code, ok := members["faultCode"].(int); ok {
				fault.Code = code
			}
			if message, ok := members["faultString"].(string); ok {
				fault.Message = message
			}
		}
		return nil, fault
	}

	if response.Param == nil {
		return nil, fmt.Errorf("xmlrpc response carried no value")
	}

	return response.Param.parsed, nil
}
