package graph

import "strings"

// routedResultSep separates a routing port from the payload text in the
// string a multi-output Operator (condition, loop) returns from Execute.
// Encoding the port into the plain string keeps Operator's signature
// uniform across every vertex kind instead of giving condition and loop
// their own interface methods.
const routedResultSep = "\x00"

// validPortsByKind lists, for each multi-output kind, the ports a routed
// result is allowed to name.
var validPortsByKind = map[Kind][2]string{
	KindCondition: {PortTrue, PortFalse},
	KindLoop:      {PortLoop, PortDone},
}

// EncodeLoopResult packs a LoopResult into the string a loop operator
// returns from Execute.
func EncodeLoopResult(r LoopResult) string {
	return string(r.Port) + routedResultSep + r.Text
}

// DecodeLoopResult unpacks what EncodeLoopResult produced. ok is false if
// s wasn't produced by EncodeLoopResult, which the scheduler treats as a
// wiring bug in the loop operator.
func DecodeLoopResult(s string) (LoopResult, bool) {
	port, text, found := strings.Cut(s, routedResultSep)
	if !found {
		return LoopResult{}, false
	}
	switch LoopPort(port) {
	case LoopContinue, LoopDone:
		return LoopResult{Port: LoopPort(port), Text: text}, true
	default:
		return LoopResult{}, false
	}
}

// EncodeRoutedResult packs a (port, text) pair into the string a
// condition operator returns from Execute. port must be PortTrue or
// PortFalse.
func EncodeRoutedResult(port, text string) string {
	return port + routedResultSep + text
}

// DecodeRoutedResult unpacks what EncodeRoutedResult produced for a vertex
// of the given kind, validating that port is one kind allows. ok is false
// if s is malformed or names a port kind doesn't permit, which the
// scheduler treats as a wiring bug in the operator.
func DecodeRoutedResult(kind Kind, s string) (port, text string, ok bool) {
	ports, known := validPortsByKind[kind]
	if !known {
		return "", "", false
	}
	port, text, found := strings.Cut(s, routedResultSep)
	if !found {
		return "", "", false
	}
	if port != ports[0] && port != ports[1] {
		return "", "", false
	}
	return port, text, true
}
