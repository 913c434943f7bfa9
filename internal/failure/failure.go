// Package failure classifies every error the daemon can hit into one of a
// fixed set of kinds, each with a canonical operator-facing message and a
// log severity.
//
// All failures travel as *Error carrying a Kind tag. Callers dispatch on the
// tag (KindOf / Classify), never on concrete Go types.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the failure taxonomy tag.
type Kind int

const (
	Unclassified Kind = iota
	MissingCredentials
	EndpointUnreachable
	MalformedResponse
	MissingField
	UnknownStatus
	IncompleteItem
	NotifierFailure
)

// Severity controls the log level a failure is reported with.
type Severity int

const (
	SeverityError Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "error"
}

// GenericTemplate wraps the canonical message of any failure before it is
// sent to the operator chat.
const GenericTemplate = "Сбой в работе программы: %s"

type kindInfo struct {
	name     string
	message  string
	severity Severity
}

var kinds = map[Kind]kindInfo{
	MissingCredentials:  {"missing_credentials", "Отсутствует элемент переменного окружения.", SeverityCritical},
	EndpointUnreachable: {"endpoint_unreachable", "Указанный эндпоинт недоступен.", SeverityError},
	MalformedResponse:   {"malformed_response", "Сбой в обращении к эндпоинту.", SeverityError},
	MissingField:        {"missing_field", "Отсутствие ожидаемых ключей в ответе API.", SeverityError},
	UnknownStatus:       {"unknown_status", "Неожиданный статус домашней работы в ответе API.", SeverityError},
	IncompleteItem:      {"incomplete_item", "В ответе API отсутствует имя или статус работы.", SeverityError},
	NotifierFailure:     {"notifier_failure", "Сбой отправки сообщения в телеграмм.", SeverityError},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unclassified"
}

// Fatal reports whether a failure of this kind must stop the process.
func (k Kind) Fatal() bool { return k == MissingCredentials }

// Error is the single error type produced by the core.
type Error struct {
	Kind Kind
	Op   string // e.g. "endpoint.Fetch"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error without a cause.
func New(kind Kind, op string) error {
	return &Error{Kind: kind, Op: op}
}

// Newf returns an *Error whose cause is a formatted message.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or Unclassified when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unclassified
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Classification is the outcome of Classify.
type Classification struct {
	Kind     Kind
	Message  string
	Severity Severity
}

// Notification returns the operator-facing text for this failure.
func (c Classification) Notification() string {
	return fmt.Sprintf(GenericTemplate, c.Message)
}

// Classify maps any error onto the fixed taxonomy.
func Classify(err error) Classification {
	kind := KindOf(err)
	if info, ok := kinds[kind]; ok {
		return Classification{Kind: kind, Message: info.message, Severity: info.severity}
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Classification{Kind: Unclassified, Message: msg, Severity: SeverityError}
}
