package pyoracle

import "github.com/dusk-indust/pygraph/internal/grapher"

// builtinKinds maps the names of the builtins module to the kind reported
// for them.
var builtinKinds = map[string]string{}

func init() {
	for _, n := range []string{
		"abs", "aiter", "all", "anext", "any", "ascii", "bin", "breakpoint",
		"callable", "chr", "compile", "delattr", "dir", "divmod", "eval",
		"exec", "format", "getattr", "globals", "hasattr", "hash", "help",
		"hex", "id", "input", "isinstance", "issubclass", "iter", "len",
		"locals", "max", "min", "next", "oct", "open", "ord", "pow", "print",
		"repr", "round", "setattr", "sorted", "sum", "vars", "__import__",
	} {
		builtinKinds[n] = grapher.KindFunction
	}
	for _, n := range []string{
		"bool", "bytearray", "bytes", "classmethod", "complex", "dict",
		"enumerate", "filter", "float", "frozenset", "int", "list", "map",
		"memoryview", "object", "property", "range", "reversed", "set",
		"slice", "staticmethod", "str", "super", "tuple", "type", "zip",
		"BaseException", "BaseExceptionGroup", "Exception", "ExceptionGroup",
		"ArithmeticError", "AssertionError", "AttributeError", "BlockingIOError",
		"BrokenPipeError", "BufferError", "ChildProcessError",
		"ConnectionAbortedError", "ConnectionError", "ConnectionRefusedError",
		"ConnectionResetError", "EOFError", "EnvironmentError",
		"FileExistsError", "FileNotFoundError", "FloatingPointError",
		"GeneratorExit", "IOError", "ImportError", "IndentationError",
		"IndexError", "InterruptedError", "IsADirectoryError", "KeyError",
		"KeyboardInterrupt", "LookupError", "MemoryError",
		"ModuleNotFoundError", "NameError", "NotADirectoryError",
		"NotImplementedError", "OSError", "OverflowError", "PermissionError",
		"ProcessLookupError", "RecursionError", "ReferenceError",
		"RuntimeError", "StopAsyncIteration", "StopIteration", "SyntaxError",
		"SystemError", "SystemExit", "TabError", "TimeoutError", "TypeError",
		"UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError",
		"UnicodeError", "UnicodeTranslateError", "ValueError",
		"ZeroDivisionError", "Warning", "BytesWarning", "DeprecationWarning",
		"EncodingWarning", "FutureWarning", "ImportWarning",
		"PendingDeprecationWarning", "ResourceWarning", "RuntimeWarning",
		"SyntaxWarning", "UnicodeWarning", "UserWarning",
	} {
		builtinKinds[n] = grapher.KindClass
	}
	for _, n := range []string{
		"Ellipsis", "NotImplemented", "__name__", "__file__", "__doc__",
		"__package__", "__spec__", "__loader__", "__builtins__", "__debug__",
	} {
		builtinKinds[n] = grapher.KindStatement
	}
}

// builtinName returns the built-in definition for name, if there is one.
func builtinName(name string) (grapher.Name, bool) {
	kind, ok := builtinKinds[name]
	if !ok {
		return grapher.Name{}, false
	}
	return grapher.Name{
		Name:       name,
		Kind:       kind,
		FullName:   name,
		Definition: true,
		Builtin:    true,
	}, true
}
