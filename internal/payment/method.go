package payment

import "errors"

// Method is the closed set of supported payment backends.
type Method string

const (
	MethodVisa Method = "visa"
	MethodIBox Method = "ibox terminal"
	MethodBank Method = "bank"
)

var ErrUnsupportedMethod = errors.New("unsupported payment method")

// ParseMethod matches the wire name exactly, with no normalization.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodVisa:
		return MethodVisa, nil
	case MethodIBox:
		return MethodIBox, nil
	case MethodBank:
		return MethodBank, nil
	default:
		return "", ErrUnsupportedMethod
	}
}

func (m Method) String() string {
	return string(m)
}
