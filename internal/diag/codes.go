package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Разрешение имён
	ResInfo             Code = 1000
	ResUndefinedName    Code = 1001
	ResDuplicateName    Code = 1002
	ResAmbiguousUses    Code = 1003
	ResPackageCycle     Code = 1004
	ResDuplicatePackage Code = 1005
	ResInheritanceCycle Code = 1006
	ResAliasCycle       Code = 1007
	ResNotAType         Code = 1008
	ResNotAClass        Code = 1009
	ResNotAnInterface   Code = 1010
	ResNotAConstant     Code = 1011
	ResUndefinedPackage Code = 1012
	ResDuplicateSel     Code = 1013
	ResRenameUnknown    Code = 1014

	// Инстанцирование дженериков
	GenInfo          Code = 2000
	GenArgCount      Code = 2001
	GenConstraint    Code = 2002
	GenTooLarge      Code = 2003
	GenNotGeneric    Code = 2004
	GenMissingTyArgs Code = 2005

	// Вариантность
	VarInfo             Code = 3000
	VarOverrideParam    Code = 3001
	VarOverrideReturn   Code = 3002
	VarParamCount       Code = 3003
	VarParamName        Code = 3004
	VarKindMismatch     Code = 3005
	VarMissingBody      Code = 3006
	VarDuplicateBody    Code = 3007
	VarBodyWithoutProto Code = 3008
	VarMissingMessage   Code = 3009
	VarExtendsConflict  Code = 3010
	VarOperatorSpelling Code = 3011
	VarRecursiveType    Code = 3012
	VarTypeMismatch     Code = 3013

	// Раскладка и таблицы диспетчеризации
	LayInfo          Code = 4000
	LayUnsized       Code = 4001
	LayBadArrayLen   Code = 4002
	LayArrayOverflow Code = 4003
	LayConflict      Code = 4004
	LayCollision     Code = 4005

	// Вычисление констант
	ConInfo        Code = 5000
	ConDivByZero   Code = 5001
	ConOverflow    Code = 5002
	ConNaN         Code = 5003
	ConNotConstant Code = 5004
	ConBadOperand  Code = 5005

	// Ошибки проекта / I/O
	PrjInfo         Code = 6000
	PrjLoadError    Code = 6001
	PrjBadManifest  Code = 6002
	PrjStaleExport  Code = 6003
	PrjTooManyErrs  Code = 6004
	PrjExportFailed Code = 6005
)

var (
	codeDescription = map[Code]string{
		UnknownCode:         "Unknown error",
		ResInfo:             "Name resolution information",
		ResUndefinedName:    "Undefined name",
		ResDuplicateName:    "Name already defined",
		ResAmbiguousUses:    "Ambiguous name from uses",
		ResPackageCycle:     "Circular package use",
		ResDuplicatePackage: "Duplicate package",
		ResInheritanceCycle: "Circular inheritance",
		ResAliasCycle:       "Circular type alias",
		ResNotAType:         "Name is not a type",
		ResNotAClass:        "Superclass is not a class",
		ResNotAnInterface:   "Not an interface",
		ResNotAConstant:     "Name is not a constant",
		ResUndefinedPackage: "Undefined package",
		ResDuplicateSel:     "Selector already defined",
		ResRenameUnknown:    "Renamed name not exported",
		GenInfo:             "Generic instantiation information",
		GenArgCount:         "Wrong number of type arguments",
		GenConstraint:       "Type argument violates constraint",
		GenTooLarge:         "Type argument too large",
		GenNotGeneric:       "Type takes no arguments",
		GenMissingTyArgs:    "Missing type arguments",
		VarInfo:             "Variance information",
		VarOverrideParam:    "Incompatible parameter type",
		VarOverrideReturn:   "Incompatible return type",
		VarParamCount:       "Wrong number of parameters",
		VarParamName:        "Parameter name mismatch",
		VarKindMismatch:     "Selector kind mismatch",
		VarMissingBody:      "Prototype without body",
		VarDuplicateBody:    "Duplicate body",
		VarBodyWithoutProto: "Body without prototype",
		VarMissingMessage:   "Interface message not implemented",
		VarExtendsConflict:  "Inherited message conflict",
		VarOperatorSpelling: "Reserved operator spelling",
		VarRecursiveType:    "Recursively defined type",
		VarTypeMismatch:     "Type mismatch",
		LayInfo:             "Layout information",
		LayUnsized:          "Size cannot be determined",
		LayBadArrayLen:      "Bad array length",
		LayArrayOverflow:    "Array too large",
		LayConflict:         "Inheritance conflict",
		LayCollision:        "Dispatch offset collision",
		ConInfo:             "Constant evaluation information",
		ConDivByZero:        "Division by zero",
		ConOverflow:         "Arithmetic overflow",
		ConNaN:              "Not a number",
		ConNotConstant:      "Not a constant expression",
		ConBadOperand:       "Bad constant operand",
		PrjInfo:             "Project information",
		PrjLoadError:        "Cannot load package",
		PrjBadManifest:      "Bad project manifest",
		PrjStaleExport:      "Stale package export",
		PrjTooManyErrs:      "Too many errors",
		PrjExportFailed:     "Cannot write package export",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("VAR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CON%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
