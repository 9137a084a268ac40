package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// Test types for registry tests
type testInterface interface {
	DoSomething()
}

type testImplementation struct{}

func (t *testImplementation) DoSomething() {}

var (
	interfaceType = reflect.TypeOf((*testInterface)(nil)).Elem()
	stringType    = reflect.TypeOf("")
)

func TestNew(t *testing.T) {
	reg := New()
	if reg == nil {
		t.Fatal("New() returned nil")
	}
	if reg.bindings == nil {
		t.Error("Registry.bindings is nil")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestRegister_Success(t *testing.T) {
	reg := New()
	key := Key{Type: interfaceType}

	err := reg.Register(&Binding{Key: key, Instance: &testImplementation{}})
	if err != nil {
		t.Errorf("Register() returned error: %v", err)
	}

	if !reg.Has(key) {
		t.Error("Binding not found after Register()")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := New()
	key := Key{Type: interfaceType}

	if err := reg.Register(&Binding{Key: key, Source: "first"}); err != nil {
		t.Fatalf("First Register() failed: %v", err)
	}

	err := reg.Register(&Binding{Key: key, Source: "second"})
	if err == nil {
		t.Fatal("Register() should return error for duplicate binding")
	}

	var dup *BindingAlreadyExistsError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected BindingAlreadyExistsError, got %T", err)
	}
	if dup.Existing != "first" || dup.Incoming != "second" {
		t.Errorf("unexpected sources: %q, %q", dup.Existing, dup.Incoming)
	}
}

func TestRegister_QualifierSeparatesKeys(t *testing.T) {
	reg := New()

	keys := []Key{
		{Type: stringType},
		{Type: stringType, Qualifier: "bound"},
		{Type: stringType, Qualifier: "qualifying"},
	}
	for _, k := range keys {
		if err := reg.Register(&Binding{Key: k}); err != nil {
			t.Fatalf("Register(%v) failed: %v", k, err)
		}
	}

	if reg.Len() != len(keys) {
		t.Errorf("Len() = %d, want %d", reg.Len(), len(keys))
	}
}

func TestRegister_NilBinding(t *testing.T) {
	reg := New()
	if err := reg.Register(nil); err == nil {
		t.Error("Register(nil) should return error")
	}
}

func TestRegister_MissingType(t *testing.T) {
	reg := New()
	if err := reg.Register(&Binding{Key: Key{Qualifier: "x"}}); err == nil {
		t.Error("Register() without a key type should return error")
	}
}

func TestGet_NotFound(t *testing.T) {
	reg := New()

	binding, err := reg.Get(Key{Type: interfaceType})
	if binding != nil {
		t.Error("Get() should return nil binding when not found")
	}

	var notFound *BindingNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected BindingNotFoundError, got %T", err)
	}
}

func TestGet_Qualified(t *testing.T) {
	reg := New()
	key := Key{Type: stringType, Qualifier: "bound"}
	_ = reg.Register(&Binding{Key: key, Instance: "binding"})

	binding, err := reg.Get(key)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if binding.Instance != "binding" {
		t.Errorf("Instance = %v, want binding", binding.Instance)
	}

	if _, err := reg.Get(Key{Type: stringType}); err == nil {
		t.Error("unqualified lookup should not match a qualified binding")
	}
}

func TestKeys_Sorted(t *testing.T) {
	reg := New()
	_ = reg.Register(&Binding{Key: Key{Type: stringType, Qualifier: "b"}})
	_ = reg.Register(&Binding{Key: Key{Type: stringType, Qualifier: "a"}})
	_ = reg.Register(&Binding{Key: Key{Type: stringType}})

	keys := reg.Keys()
	want := []string{"string", "string@a", "string@b"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() returned %d keys, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, k, want[i])
		}
	}
}

func TestConcurrentRegister(t *testing.T) {
	reg := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key{Type: interfaceType, Qualifier: fmt.Sprintf("q%d", i)}
			if err := reg.Register(&Binding{Key: key}); err != nil {
				t.Errorf("Register(%v) failed: %v", key, err)
			}
		}(i)
	}

	wg.Wait()

	if reg.Len() != 100 {
		t.Errorf("Len() = %d, want 100", reg.Len())
	}
}

func TestBindingAlreadyExistsError_Message(t *testing.T) {
	err := &BindingAlreadyExistsError{Key: Key{Type: stringType}}
	if err.Error() != "binding already exists for string" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = &BindingAlreadyExistsError{Key: Key{Type: stringType}, Incoming: "b"}
	want := "binding already exists for string (declared by <unknown>, redeclared by b)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
