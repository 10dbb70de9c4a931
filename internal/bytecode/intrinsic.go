package bytecode

// Intrinsic enumerates IntrinsicOp's sub-operation byte (§4.4). These cover
// mechanics the compiler desugars to rather than dedicated opcodes —
// iteration-protocol plumbing for for-of/for-in, spread expansion, and
// instance construction's `this` initialization — keeping the core opcode
// table small while still letting the VM own every behavior that depends on
// a built-in object's shape.
type Intrinsic byte

const (
	// IntrinsicGetIterator calls `obj[Symbol.iterator]()`, pushing the
	// resulting iterator object (for-of, §4.5).
	IntrinsicGetIterator Intrinsic = iota
	// IntrinsicGetKeyIterator builds a key-enumeration iterator walking
	// obj's own and inherited enumerable string keys (for-in, §4.5).
	IntrinsicGetKeyIterator
	// IntrinsicIterNext calls the iterator's `.next()` and pushes value
	// then a boolean done flag (top of stack), letting the compiler's
	// for-of/for-in loop JmpTrueP directly on "done" without allocating a
	// temporary {value,done} object.
	IntrinsicIterNext
	// IntrinsicNewObject allocates a new ordinary object with the given
	// prototype (top of stack) for a `new` expression's `this` binding.
	IntrinsicNewObject
	// IntrinsicArrayNew pushes a fresh, empty array — the accumulator a
	// literal or call's spread elements (`...x`) append into, since a
	// spread's expansion count is only known at runtime and ArrayLit's
	// operand is a fixed compile-time element count (§4.4).
	IntrinsicArrayNew
	// IntrinsicArrayPush pops a value and the array below it, appends the
	// value, and pushes the array back.
	IntrinsicArrayPush
	// IntrinsicArraySpread pops an iterable and the array below it, appends
	// every element the iterable yields, and pushes the array back —
	// `...x` inside an array literal or call argument list.
	IntrinsicArraySpread
	// IntrinsicCallSpread pops an arguments array then a callee, and invokes
	// the callee with the array's elements as arguments — used whenever any
	// argument in a call's argument list is a spread (`f(...xs)`), since
	// Call's argc metadata byte needs a compile-time-known count (§4.4) and
	// a spread's element count is only known at runtime.
	IntrinsicCallSpread
	// IntrinsicCallSpreadMethod is IntrinsicCallSpread for a method call:
	// pops an arguments array, a callee, then a receiver, invoking callee
	// with that receiver as `this`.
	IntrinsicCallSpreadMethod
	// IntrinsicConstructSpread pops an arguments array then a constructor,
	// invoking it with the array's elements under `new` semantics.
	IntrinsicConstructSpread
	// IntrinsicTypeof pops a value and pushes its `typeof` string (§4.3);
	// unlike the other unary operators (Neg/Not/BitNot) typeof is not a
	// dedicated opcode because it is the only unary form that never throws
	// on an unresolvable binding (`typeof undeclaredName` is `"undefined"`,
	// not a ReferenceError), a detail left to the VM's operand-fetch path
	// rather than encoded as a distinct opcode.
	IntrinsicTypeof
	// IntrinsicDeleteProperty pops a property key then an object, deletes
	// the own property, and pushes the boolean result (`delete obj.prop`).
	IntrinsicDeleteProperty
	// IntrinsicToNumber pops a value and pushes its ToNumber coercion
	// (unary `+`, §4.3) — not expressed as `0 + x` because that goes
	// through string concatenation when x is a string.
	IntrinsicToNumber
	// IntrinsicObjectSpread pops a source value and the object below it,
	// copies the source's own enumerable properties onto the object, and
	// pushes the object back (`{...x}`) — distinct from IntrinsicArraySpread
	// because object spread copies own properties rather than iterating.
	IntrinsicObjectSpread
)
