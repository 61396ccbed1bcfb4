package operation

import (
	"context"
	"reflect"
)

var frameKey = KeyOf[*frame]()

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

func frameOf(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	return ContextValue[*frame](ctx)
}
