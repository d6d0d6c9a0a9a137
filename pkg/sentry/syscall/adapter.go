package syscall

import "github.com/Nashatyrev/shadow/pkg/sentry/kernel"

// HandlerFunc is a "compiled" handler: one that already knows how to pull
// its own typed parameters out of a raw SyscallArgs. The registry stores
// values of this type; Handler0..Handler6 are the adapters that produce
// one from a strongly-typed handler body, mirroring the six
// impl<F, T0..T6> SyscallHandlerFn blocks in Shadow's
// host::syscall::handler::mod (spec.md §4.1 "Argument adaptation",
// §9 "Variadic handler signatures").
type HandlerFunc func(ctx *Context) Result

// Handler0 adapts a zero-argument handler body.
func Handler0(fn func(ctx *Context) (kernel.Reg, error)) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx)
		return resultFrom(v, err)
	}
}

// Handler1 adapts a one-argument handler body. conv1 converts the first
// raw register into the type the body declares — typically a method
// expression like kernel.Reg.Int32 or kernel.Reg.Addr, but any
// func(kernel.Reg) T works, which is how handlers accept bitflag or enum
// parameter types.
func Handler1[T1 any](conv1 func(kernel.Reg) T1, fn func(ctx *Context, a1 T1) (kernel.Reg, error)) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx, conv1(ctx.Args.Get(0)))
		return resultFrom(v, err)
	}
}

// Handler2 adapts a two-argument handler body.
func Handler2[T1, T2 any](
	conv1 func(kernel.Reg) T1, conv2 func(kernel.Reg) T2,
	fn func(ctx *Context, a1 T1, a2 T2) (kernel.Reg, error),
) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx, conv1(ctx.Args.Get(0)), conv2(ctx.Args.Get(1)))
		return resultFrom(v, err)
	}
}

// Handler3 adapts a three-argument handler body.
func Handler3[T1, T2, T3 any](
	conv1 func(kernel.Reg) T1, conv2 func(kernel.Reg) T2, conv3 func(kernel.Reg) T3,
	fn func(ctx *Context, a1 T1, a2 T2, a3 T3) (kernel.Reg, error),
) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx, conv1(ctx.Args.Get(0)), conv2(ctx.Args.Get(1)), conv3(ctx.Args.Get(2)))
		return resultFrom(v, err)
	}
}

// Handler4 adapts a four-argument handler body.
func Handler4[T1, T2, T3, T4 any](
	conv1 func(kernel.Reg) T1, conv2 func(kernel.Reg) T2, conv3 func(kernel.Reg) T3, conv4 func(kernel.Reg) T4,
	fn func(ctx *Context, a1 T1, a2 T2, a3 T3, a4 T4) (kernel.Reg, error),
) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx,
			conv1(ctx.Args.Get(0)), conv2(ctx.Args.Get(1)),
			conv3(ctx.Args.Get(2)), conv4(ctx.Args.Get(3)))
		return resultFrom(v, err)
	}
}

// Handler5 adapts a five-argument handler body.
func Handler5[T1, T2, T3, T4, T5 any](
	conv1 func(kernel.Reg) T1, conv2 func(kernel.Reg) T2, conv3 func(kernel.Reg) T3,
	conv4 func(kernel.Reg) T4, conv5 func(kernel.Reg) T5,
	fn func(ctx *Context, a1 T1, a2 T2, a3 T3, a4 T4, a5 T5) (kernel.Reg, error),
) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx,
			conv1(ctx.Args.Get(0)), conv2(ctx.Args.Get(1)), conv3(ctx.Args.Get(2)),
			conv4(ctx.Args.Get(3)), conv5(ctx.Args.Get(4)))
		return resultFrom(v, err)
	}
}

// Handler6 adapts a six-argument handler body — the maximum arity a
// syscall register file supports (spec.md §3, §4.1: "The framework
// supports 0..=6 parameters").
func Handler6[T1, T2, T3, T4, T5, T6 any](
	conv1 func(kernel.Reg) T1, conv2 func(kernel.Reg) T2, conv3 func(kernel.Reg) T3,
	conv4 func(kernel.Reg) T4, conv5 func(kernel.Reg) T5, conv6 func(kernel.Reg) T6,
	fn func(ctx *Context, a1 T1, a2 T2, a3 T3, a4 T4, a5 T5, a6 T6) (kernel.Reg, error),
) HandlerFunc {
	return func(ctx *Context) Result {
		v, err := fn(ctx,
			conv1(ctx.Args.Get(0)), conv2(ctx.Args.Get(1)), conv3(ctx.Args.Get(2)),
			conv4(ctx.Args.Get(3)), conv5(ctx.Args.Get(4)), conv6(ctx.Args.Get(5)))
		return resultFrom(v, err)
	}
}
