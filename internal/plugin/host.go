package plugin

import (
	"github.com/dop251/goja"
	"github.com/plugward/plugward/internal/jsenv"
	"github.com/plugward/plugward/internal/security/permission"
)

// hostInjector exposes the capability-constrained host API as a `host`
// object inside the VM. Every call goes through the context's dispatch, so
// a plugin without the matching grant gets a thrown CapabilityError no
// matter what it does in script.
func hostInjector(ctx *permission.ConstrainedContext) jsenv.Injector {
	return func(vm *goja.Runtime) error {
		host := vm.NewObject()
		if err := host.Set("readStorage", func(key string) (string, error) {
			return ctx.ReadStorage(key)
		}); err != nil {
			return err
		}
		if err := host.Set("writeStorage", func(key, value string) error {
			return ctx.WriteStorage(key, value)
		}); err != nil {
			return err
		}
		if err := host.Set("cookies", func() (map[string]string, error) {
			return ctx.ReadCookies()
		}); err != nil {
			return err
		}
		if err := host.Set("notify", func(title, message string) error {
			return ctx.ShowNotification(title, message)
		}); err != nil {
			return err
		}
		if err := host.Set("readClipboard", func() (string, error) {
			return ctx.ReadClipboard()
		}); err != nil {
			return err
		}
		if err := host.Set("writeClipboard", func(text string) error {
			return ctx.WriteClipboard(text)
		}); err != nil {
			return err
		}
		if err := host.Set("deviceInfo", func() (permission.DeviceInfo, error) {
			return ctx.ReadDeviceInfo()
		}); err != nil {
			return err
		}
		return vm.Set("host", host)
	}
}
