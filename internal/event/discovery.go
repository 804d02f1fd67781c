package event

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// identify returns the identity key and display name of a subscriber.
// Only non-nil pointers to sized types have a stable identity: Go may give
// distinct zero-size values the same address.
func identify(sub Subscriber) (any, string, error) {
	if sub == nil {
		return nil, "", fmt.Errorf("%w: nil", ErrInvalidSubscriber)
	}
	v := reflect.ValueOf(sub)
	if v.Kind() != reflect.Pointer {
		return nil, "", fmt.Errorf("%w: %T is not a pointer", ErrInvalidSubscriber, sub)
	}
	if v.IsNil() {
		return nil, "", fmt.Errorf("%w: nil %T", ErrInvalidSubscriber, sub)
	}
	if v.Elem().Type().Size() == 0 {
		return nil, "", fmt.Errorf("%w: %T points to a zero-size type", ErrInvalidSubscriber, sub)
	}
	return sub, v.Type().String(), nil
}

// discover turns the subscriber's listeners into registry entries.
// It fails on the first invalid listener without returning partial results.
func discover(sub Subscriber, ownerName string) (entries []*Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = &ValidationError{
				Subscriber: ownerName,
				Listener:   "Listeners()",
				Reason:     fmt.Sprintf("panicked: %v", r),
			}
		}
	}()

	listeners := sub.Listeners()
	entries = make([]*Entry, 0, len(listeners))
	for i, l := range listeners {
		label := l.config.Label
		if label == "" {
			label = fmt.Sprintf("%s#%d", ownerName, i)
		}

		if reason := l.validate(); reason != "" {
			return nil, &ValidationError{
				Subscriber: ownerName,
				Listener:   label,
				Reason:     reason,
			}
		}

		entries = append(entries, &Entry{
			id:               uuid.NewString(),
			ownerName:        ownerName,
			eventType:        l.eventType,
			label:            label,
			priority:         l.config.Priority,
			receiveCancelled: l.config.ReceiveCancelled,
			invoke:           l.invoke,
		})
	}
	return entries, nil
}
