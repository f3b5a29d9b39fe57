package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

// EventBus dispatches published values to every subscribed func whose
// parameter list matches the published arguments.
type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	Clear()
	SubscribersCount() int
}

// EventBusWithError additionally reports handler failures, used by the outbox relay to retry.
type EventBusWithError interface {
	EventBus
	PublishE(args ...any) error
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type subscriber struct {
	handler any
	fn      reflect.Value
}

type publisherImpl struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBusWithError {
	return &publisherImpl{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			if paramType.Kind() != reflect.Interface && paramType.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func callArgs(handler reflect.Type, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(handler.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func (p *publisherImpl) matching(args []any) []subscriber {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]subscriber, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		if MatchSignature(s.handler, args) {
			out = append(out, s)
		}
	}
	return out
}

func (p *publisherImpl) Publish(args ...any) {
	subs := p.matching(args)
	if len(subs) == 0 {
		if p.log != nil {
			p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
		}
		return
	}
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil && p.log != nil {
					p.log.Errorf("eventbus: handler %s panicked with args %v: %v", s.fn.Type().String(), args, r)
				}
			}()
			s.fn.Call(callArgs(s.fn.Type(), args))
		}()
	}
}

func (p *publisherImpl) PublishE(args ...any) error {
	subs := p.matching(args)
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	var errs []error
	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("eventbus: handler %s panicked: %v", s.fn.Type().String(), r))
				}
			}()

			out := s.fn.Call(callArgs(s.fn.Type(), args))
			switch {
			case len(out) == 0:
			case len(out) != 1:
				errs = append(errs, fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, s.fn.Type().String(), len(out)))
			case out[0].Type() != errorType:
				errs = append(errs, fmt.Errorf("%w: handler %s return type is %s", ErrInvalidHandlerReturn, s.fn.Type().String(), out[0].Type().String()))
			case !out[0].IsNil():
				errs = append(errs, out[0].Interface().(error))
			}
		}()
	}
	return errors.Join(errs...)
}

func (p *publisherImpl) Subscribe(handler any) {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, subscriber{handler: handler, fn: fn})
}

// Unsubscribe removes handler. Funcs are compared by code pointer, so every
// subscription made from the same func value is removed.
func (p *publisherImpl) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler)
	if target.Kind() != reflect.Func {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.subscribers[:0]
	for _, s := range p.subscribers {
		if s.fn.Pointer() != target.Pointer() {
			kept = append(kept, s)
		}
	}
	p.subscribers = kept
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
