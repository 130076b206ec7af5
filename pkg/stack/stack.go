package stack

import "github.com/pkg/errors"

// ErrUnderflow is the panic value raised when popping or peeking past the
// bottom of a stack.
var ErrUnderflow = errors.New("stack underflow")

type Stack[T any] struct {
	a []T
	l int
}

// NewStack creates a new stack instance
func NewStack[T any](elm ...T) *Stack[T] {
	stack := Stack[T]{
		a: make([]T, 0, len(elm)),
		l: 0,
	}

	for _, e := range elm {
		stack.l++
		stack.a = append(stack.a, e)
	}

	return &stack
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(elm T) {
	s.l++
	s.a = append(s.a, elm)
}

// Pop removes and returns the top element of the stack.
// It panics with ErrUnderflow on an empty stack.
func (s *Stack[T]) Pop() T {
	if s.l < 1 {
		panic(ErrUnderflow)
	}

	var zero T
	s.l--
	elm := s.a[s.l]
	s.a[s.l] = zero
	s.a = s.a[:s.l]

	return elm
}

// PopN removes the top n elements and returns them in push order, so the
// element that was deepest comes first.
func (s *Stack[T]) PopN(n int) []T {
	if n < 0 || n > s.l {
		panic(ErrUnderflow)
	}

	out := make([]T, n)
	copy(out, s.a[s.l-n:s.l])
	s.Truncate(s.l - n)

	return out
}

// Peek returns the top element of the stack without removing it
func (s *Stack[T]) Peek() T {
	return s.PeekN(1)
}

// PeekN returns the element n slots from the top; PeekN(1) is the top.
func (s *Stack[T]) PeekN(n int) T {
	if n < 1 || n > s.l {
		panic(ErrUnderflow)
	}

	return s.a[s.l-n]
}

// SetTop replaces the top element.
func (s *Stack[T]) SetTop(elm T) {
	if s.l < 1 {
		panic(ErrUnderflow)
	}

	s.a[s.l-1] = elm
}

// Truncate drops elements until the stack holds size of them.
func (s *Stack[T]) Truncate(size int) {
	if size < 0 {
		panic(ErrUnderflow)
	}

	var zero T
	for s.l > size {
		s.l--
		s.a[s.l] = zero
	}
	s.a = s.a[:s.l]
}

// Get the size of the stack
func (s *Stack[T]) Size() int {
	return s.l
}

// Array returns the underlying array of the stack
func (s Stack[T]) Array() []T {
	return s.a
}
