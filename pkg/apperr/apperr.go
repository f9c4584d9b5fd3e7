// Package apperr holds the error taxonomy of the node. Every error carries a
// Kind, a user-facing notice (Spanish, as shown to the phone user) and the
// internal cause. Nothing here is fatal; callers surface notices and move on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindPermissionDenied  Kind = "PERMISSION_DENIED"
	KindDeviceNotFound    Kind = "DEVICE_NOT_FOUND"
	KindAmbiguousPeer     Kind = "AMBIGUOUS_PEER"
	KindConnectionFailed  Kind = "CONNECTION_FAILED"
	KindAlreadyListening  Kind = "ALREADY_LISTENING"
	KindAlreadyConnected  Kind = "ALREADY_CONNECTED"
	KindAlreadyConnecting Kind = "ALREADY_CONNECTING"
	KindAlreadySubscribed Kind = "ALREADY_SUBSCRIBED"
	KindNotConnected      Kind = "NOT_CONNECTED"
	KindWriteFailed       Kind = "WRITE_FAILED"
	KindPayloadParse      Kind = "PAYLOAD_PARSE_ERROR"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindRelayOnly         Kind = "RELAY_ONLY"
	KindStorage           Kind = "STORAGE_ERROR"
)

// Error implements error and unwraps to its internal cause.
type Error struct {
	Kind     Kind   `json:"code"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrWriteFailed)
// works regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrDeviceNotFound    = &Error{Kind: KindDeviceNotFound}
	ErrAmbiguousPeer     = &Error{Kind: KindAmbiguousPeer}
	ErrConnectionFailed  = &Error{Kind: KindConnectionFailed}
	ErrAlreadyListening  = &Error{Kind: KindAlreadyListening}
	ErrAlreadyConnected  = &Error{Kind: KindAlreadyConnected}
	ErrAlreadyConnecting = &Error{Kind: KindAlreadyConnecting}
	ErrAlreadySubscribed = &Error{Kind: KindAlreadySubscribed}
	ErrNotConnected      = &Error{Kind: KindNotConnected}
	ErrWriteFailed       = &Error{Kind: KindWriteFailed}
	ErrPayloadParse      = &Error{Kind: KindPayloadParse}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrRelayOnly         = &Error{Kind: KindRelayOnly}
	ErrStorage           = &Error{Kind: KindStorage}
)

func PermissionDenied(err error) *Error {
	return &Error{
		Kind:     KindPermissionDenied,
		Title:    "Permisos no concedidos",
		Message:  "Por favor, concede los permisos de Bluetooth para continuar.",
		Internal: err,
	}
}

func DeviceNotFound(name string) *Error {
	return &Error{
		Kind:    KindDeviceNotFound,
		Title:   "Dispositivo no encontrado",
		Message: fmt.Sprintf("Asegúrate de que %q esté emparejado con tu teléfono.", name),
	}
}

func AmbiguousPeer(name string, count int) *Error {
	return &Error{
		Kind:    KindAmbiguousPeer,
		Title:   "Dispositivo ambiguo",
		Message: fmt.Sprintf("Hay %d dispositivos emparejados con el nombre %q.", count, name),
	}
}

func ConnectionFailed(name string, err error) *Error {
	return &Error{
		Kind:     KindConnectionFailed,
		Title:    "Error de conexión",
		Message:  fmt.Sprintf("No se pudo conectar con %q.", name),
		Internal: err,
	}
}

func AlreadyListening() *Error {
	return &Error{
		Kind:    KindAlreadyListening,
		Title:   "Modo Servidor",
		Message: "Ya se está esperando una conexión entrante.",
	}
}

func AlreadyConnected(name string) *Error {
	return &Error{
		Kind:    KindAlreadyConnected,
		Title:   "Ya conectado",
		Message: fmt.Sprintf("Ya existe una conexión con %q.", name),
	}
}

func AlreadyConnecting(name string) *Error {
	return &Error{
		Kind:    KindAlreadyConnecting,
		Title:   "Conectando",
		Message: fmt.Sprintf("Ya se está intentando conectar con %q.", name),
	}
}

func AlreadySubscribed() *Error {
	return &Error{
		Kind:    KindAlreadySubscribed,
		Title:   "Error",
		Message: "Ya existe un receptor de datos para esta conexión.",
	}
}

func NotConnected(name string) *Error {
	return &Error{
		Kind:    KindNotConnected,
		Title:   "Dispositivo no conectado",
		Message: fmt.Sprintf("No hay conexión con %q.", name),
	}
}

func WriteFailed(name string, err error) *Error {
	return &Error{
		Kind:     KindWriteFailed,
		Title:    "Error al enviar alerta",
		Message:  fmt.Sprintf("No se pudo enviar la alerta a %q.", name),
		Internal: err,
	}
}

func PayloadParse(err error) *Error {
	return &Error{
		Kind:     KindPayloadParse,
		Title:    "Error de datos",
		Message:  "Se recibieron datos con un formato incorrecto.",
		Internal: err,
	}
}

func Validation(message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Title:   "Error",
		Message: message,
	}
}

func RelayOnly() *Error {
	return &Error{
		Kind:    KindRelayOnly,
		Title:   "Modo Servidor",
		Message: "En modo servidor este teléfono solo recibe alertas; no puede enviarlas al otro teléfono.",
	}
}

func Storage(message string, err error) *Error {
	return &Error{
		Kind:     KindStorage,
		Title:    "Error de almacenamiento",
		Message:  message,
		Internal: err,
	}
}

// From returns err as *Error, wrapping unknown errors as storage failures.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage("Ocurrió un error inesperado.", err)
}

// HTTPStatus maps a Kind to the status the REST surface answers with.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindPayloadParse:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindDeviceNotFound:
		return http.StatusNotFound
	case KindAmbiguousPeer, KindAlreadyListening, KindAlreadyConnected, KindAlreadyConnecting, KindAlreadySubscribed, KindRelayOnly:
		return http.StatusConflict
	case KindNotConnected, KindConnectionFailed, KindWriteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
