package output

type state int8

const (
	stDocument state = iota
	stStartTag
	stContent
	stAttribute
	stNamespace
	stComment
	stInstruction
)

func (s state) String() string {
	switch s {
	case stDocument:
		return "document"
	case stStartTag:
		return "start tag"
	case stContent:
		return "element content"
	case stAttribute:
		return "attribute"
	case stNamespace:
		return "namespace"
	case stComment:
		return "comment"
	case stInstruction:
		return "processing instruction"
	default:
		return "<unknown>"
	}
}

type event int8

const (
	evBegin event = iota
	evText
	evEnd
)

func (e event) String() string {
	switch e {
	case evBegin:
		return "begin"
	case evText:
		return "text"
	case evEnd:
		return "end"
	default:
		return "<unknown>"
	}
}

type flags uint8

const (
	// the event starts a new record
	flagBeginRecord flags = 1 << iota
	// the event finishes the live record
	flagEndRecord
	flagDepthUp
	flagDepthDown
	// the element being opened gets content and can not be empty anymore
	flagLostEmpty
	flagPopScope
	flagError
)

func (f flags) has(other flags) bool {
	return f&other == other
}

// outlook gives the state reached from st by the event and what the
// pipeline has to do about it. It does not consider whether an end event
// matches the open construct: the pipeline checks it against its stack.
func outlook(st state, ev event, kind Kind) (state, flags) {
	switch ev {
	case evText:
		switch st {
		case stDocument:
			return stDocument, 0
		case stStartTag:
			return stContent, flagEndRecord | flagLostEmpty
		case stContent, stAttribute, stNamespace, stComment, stInstruction:
			return st, 0
		}
	case evBegin:
		return beginOutlook(st, kind)
	case evEnd:
		return endOutlook(st, kind)
	}
	return st, flagError
}

func beginOutlook(st state, kind Kind) (state, flags) {
	switch kind {
	case KindElement:
		switch st {
		case stDocument, stContent:
			return stStartTag, flagBeginRecord | flagEndRecord | flagDepthUp
		case stStartTag:
			return stStartTag, flagBeginRecord | flagEndRecord | flagLostEmpty | flagDepthUp
		}
	case KindAttribute:
		if st == stStartTag {
			return stAttribute, 0
		}
	case KindNamespace:
		if st == stStartTag {
			return stNamespace, 0
		}
	case KindComment, KindInstruction:
		next := stComment
		if kind == KindInstruction {
			next = stInstruction
		}
		switch st {
		case stDocument, stContent:
			return next, flagBeginRecord | flagEndRecord
		case stStartTag:
			return next, flagBeginRecord | flagEndRecord | flagLostEmpty
		}
	}
	return st, flagError
}

func endOutlook(st state, kind Kind) (state, flags) {
	switch kind {
	case KindElement:
		switch st {
		case stStartTag:
			return st, flagEndRecord | flagDepthDown | flagPopScope
		case stContent:
			return st, flagBeginRecord | flagEndRecord | flagDepthDown | flagPopScope
		}
	case KindAttribute:
		if st == stAttribute {
			return stStartTag, 0
		}
	case KindNamespace:
		if st == stNamespace {
			return stStartTag, 0
		}
	case KindComment:
		if st == stComment {
			return st, flagEndRecord
		}
	case KindInstruction:
		if st == stInstruction {
			return st, flagEndRecord
		}
	}
	return st, flagError
}
