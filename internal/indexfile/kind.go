package indexfile

// SymbolKind is the indexer's closed, normalized taxonomy that every
// front-end entity kind is mapped into (spec.md §4.3).
type SymbolKind int

const (
	Unknown SymbolKind = iota
	Enum
	Struct
	Union
	TypeAlias
	Function
	Variable
	Parameter
	Field
	EnumConstant
	Class
	Protocol
	Extension
	InstanceMethod
	ClassMethod
	StaticMethod
	InstanceProperty
	StaticProperty
	Namespace
	NamespaceAlias
	Constructor
	Destructor
	ConversionFunction
	Macro
)

func (k SymbolKind) String() string {
	switch k {
	case Enum:
		return "Enum"
	case Struct:
		return "Struct"
	case Union:
		return "Union"
	case TypeAlias:
		return "TypeAlias"
	case Function:
		return "Function"
	case Variable:
		return "Variable"
	case Parameter:
		return "Parameter"
	case Field:
		return "Field"
	case EnumConstant:
		return "EnumConstant"
	case Class:
		return "Class"
	case Protocol:
		return "Protocol"
	case Extension:
		return "Extension"
	case InstanceMethod:
		return "InstanceMethod"
	case ClassMethod:
		return "ClassMethod"
	case StaticMethod:
		return "StaticMethod"
	case InstanceProperty:
		return "InstanceProperty"
	case StaticProperty:
		return "StaticProperty"
	case Namespace:
		return "Namespace"
	case NamespaceAlias:
		return "NamespaceAlias"
	case Constructor:
		return "Constructor"
	case Destructor:
		return "Destructor"
	case ConversionFunction:
		return "ConversionFunction"
	case Macro:
		return "Macro"
	default:
		return "Unknown"
	}
}

// Language is the translation unit's source language.
type Language int

const (
	LangUnknown Language = iota
	LangC
	LangCpp
	LangObjC
)

func (l Language) String() string {
	switch l {
	case LangC:
		return "C"
	case LangCpp:
		return "Cpp"
	case LangObjC:
		return "ObjC"
	default:
		return "Unknown"
	}
}

// Severity is a diagnostic's severity level.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInformation
	SeverityHint
)
