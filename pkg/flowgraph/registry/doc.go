// Package registry provides a generic thread-safe map for values that are
// looked up by key from many goroutines: provider constructors selected
// by configuration, and per-user lock entries created on first use.
//
//	providers := registry.New[string, Factory]()
//	providers.Register("ark", newArk)
//	providers.Register("mock", newMock)
//
//	factory, ok := providers.Get(settings.LLM.Provider)
//	if !ok {
//		return fmt.Errorf("unknown provider %q (have %v)", name, providers.Keys())
//	}
//
// Update and DeleteIf read and write an entry under one lock, so a
// reference count kept in the value cannot race with its removal.
package registry
