package foo

import (
	"github.com/woxQAQ/oobridge/internal/bridge"
	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// Enum declarations.
var (
	enumZeroToFiveType = marshal.NewEnum("EnumZeroToFive", 0, "Zero", "One", "Two", "Three", "Four", "Five")
	enumOneToSixType   = marshal.NewEnum("EnumOneToSix", 1, "One", "Two", "Three", "Four", "Five", "Six")
	enumDisjointType   = &marshal.EnumType{
		Name: "EnumDisjoint",
		Variants: []marshal.Variant{
			{Name: "Five", Ordinal: 5},
			{Name: "One", Ordinal: 1},
			{Name: "Twenty", Ordinal: 20},
			{Name: "Four", Ordinal: 4},
			{Name: "Seven", Ordinal: 7},
			{Name: "Two", Ordinal: 2},
		},
	}
	enumSingleType    = marshal.NewEnum("EnumSingle", 0, "Single")
	structureEnumType = marshal.NewEnum("StructureEnum", 0, "Var1", "Var2", "Var3")

	myErrorType = marshal.NewEnum("MyError", 1, "BadPassword", "NullArgument").
		Document("Wrong password!", "Provided argument was NULL")
	mathIsBrokenType = marshal.NewEnum("MathIsBroken", 1, "MathIsBroke", "Dropped")
)

// Struct declarations.
var (
	innerStructureType = marshal.NewStruct("InnerStructure",
		marshal.Field{Name: "test", Type: marshal.U16Type},
		marshal.Field{Name: "first_enum_value", Type: structureEnumType},
		marshal.Field{Name: "int1", Type: marshal.I16Type},
		marshal.Field{Name: "bool2", Type: marshal.BoolType},
		marshal.Field{Name: "second_enum_value", Type: structureEnumType},
	)

	structureType = marshal.NewStruct("Structure",
		marshal.Field{Name: "enum_value", Type: structureEnumType},
		marshal.Field{Name: "boolean_value", Type: marshal.BoolType},
		marshal.Field{Name: "boolean_value2", Type: marshal.BoolType},
		marshal.Field{Name: "enum_value2", Type: structureEnumType},
		marshal.Field{Name: "uint8_value", Type: marshal.U8Type},
		marshal.Field{Name: "int8_value", Type: marshal.I8Type},
		marshal.Field{Name: "uint16_value", Type: marshal.U16Type},
		marshal.Field{Name: "int16_value", Type: marshal.I16Type},
		marshal.Field{Name: "uint32_value", Type: marshal.U32Type},
		marshal.Field{Name: "int32_value", Type: marshal.I32Type},
		marshal.Field{Name: "uint64_value", Type: marshal.U64Type},
		marshal.Field{Name: "int64_value", Type: marshal.I64Type},
		marshal.Field{Name: "float_value", Type: marshal.F32Type},
		marshal.Field{Name: "double_value", Type: marshal.F64Type},
		marshal.Field{Name: "string_value", Type: marshal.StringType},
		marshal.Field{Name: "structure_value", Type: innerStructureType},
		marshal.Field{Name: "empty_interface", Type: emptyInterface.Type()},
		marshal.Field{Name: "duration_millis", Type: marshal.DurationMillis},
		marshal.Field{Name: "duration_seconds", Type: marshal.DurationSeconds},
	)

	opaqueStructType = marshal.NewStruct("OpaqueStruct",
		marshal.Field{Name: "id", Type: marshal.U64Type},
	)

	universalInnerType = marshal.NewStruct("UniversalInnerStruct",
		marshal.Field{Name: "value", Type: marshal.I32Type},
	)
	universalOuterType = marshal.NewStruct("UniversalOuterStruct",
		marshal.Field{Name: "inner", Type: universalInnerType},
		marshal.Field{Name: "delay", Type: marshal.DurationMillis},
	)
)

// Collection and iterator declarations.
var (
	stringCollectionType = &marshal.CollectionType{Name: "StringCollection", Elem: marshal.StringType}

	stringIteratorType = &marshal.IteratorType{
		Name: "StringIterator",
		Item: marshal.U8Type,
		Next: "foo_string_iterator_next",
	}
	rangeIteratorType = &marshal.IteratorType{
		Name: "RangeIterator",
		Item: marshal.I32Type,
		Next: "foo_int32_iterator_next",
	}
)

// Interface declarations. Operation order is the order the core invokes
// them by.
var (
	emptyInterface = callback.NewInterface("EmptyInterface")

	callbackInterface = callback.NewInterface("CallbackInterface",
		callback.Operation{
			Name:   "on_value",
			Params: []marshal.Field{{Name: "value", Type: marshal.U32Type}},
			Result: marshal.U32Type,
		},
		callback.Operation{
			Name:   "on_duration",
			Params: []marshal.Field{{Name: "value", Type: marshal.DurationMillis}},
			Result: marshal.DurationMillis,
		},
	)

	defaultedInterface = callback.NewInterface("DefaultedInterface",
		callback.Operation{
			Name:    "get_u32_value",
			Result:  marshal.U32Type,
			Default: callback.Constant(marshal.U32(DefaultU32Value)),
		},
		callback.Operation{
			Name:    "get_duration_ms",
			Result:  marshal.DurationMillis,
			Default: callback.Constant(marshal.Duration(DefaultDurationValue)),
		},
	)

	stringIteratorReceiver = callback.NewInterface("StringIteratorReceiver",
		callback.Operation{
			Name:   "on_characters",
			Params: []marshal.Field{{Name: "it", Type: stringIteratorType}},
		},
	)

	rangeIteratorReceiver = callback.NewInterface("RangeIteratorReceiver",
		callback.Operation{
			Name:   "on_int32",
			Params: []marshal.Field{{Name: "it", Type: rangeIteratorType}},
		},
	)

	chunkReceiver = callback.NewInterface("ChunkReceiver",
		callback.Operation{
			Name:   "on_chunk",
			Params: []marshal.Field{{Name: "chunk", Type: marshal.StringType}},
		},
	)

	valueChangeListener = callback.NewInterface("ValueChangeListener",
		callback.Operation{
			Name:   "on_value_change",
			Params: []marshal.Field{{Name: "value", Type: marshal.U32Type}},
		},
	)

	operationInterface = callback.NewInterface("Operation",
		callback.Operation{
			Name:   "execute",
			Params: []marshal.Field{{Name: "value", Type: marshal.U32Type}},
			Result: marshal.U32Type,
		},
	)

	universalInterface = callback.NewInterface("UniversalInterface",
		callback.Operation{
			Name:   "on_value",
			Params: []marshal.Field{{Name: "value", Type: universalOuterType}},
			Result: universalOuterType,
		},
	)

	addHandler = callback.NewInterface("AddHandler",
		callback.Operation{
			Name:   "on_complete",
			Params: []marshal.Field{{Name: "result", Type: marshal.U32Type}},
		},
		callback.Operation{
			Name:   "on_failure",
			Params: []marshal.Field{{Name: "error", Type: mathIsBrokenType}},
		},
	)
)

func echo(symbol string, t marshal.Type) *bridge.Signature {
	return &bridge.Signature{
		Symbol: symbol,
		Params: []bridge.Param{{Name: "value", Type: t}},
		Result: t,
	}
}

func pointerGetter(symbol string, t marshal.Type) *bridge.Signature {
	return &bridge.Signature{
		Symbol: symbol,
		Params: []bridge.Param{bridge.Instance(), {Name: "value", Type: t}},
		Result: marshal.PointerTo(t),
	}
}

// Function signatures.
var (
	sigBoolEcho = echo("foo_bool_echo", marshal.BoolType)
	sigU8Echo   = echo("foo_u8_echo", marshal.U8Type)
	sigU16Echo  = echo("foo_u16_echo", marshal.U16Type)
	sigU32Echo  = echo("foo_u32_echo", marshal.U32Type)
	sigU64Echo  = echo("foo_u64_echo", marshal.U64Type)
	sigI8Echo   = echo("foo_i8_echo", marshal.I8Type)
	sigI16Echo  = echo("foo_i16_echo", marshal.I16Type)
	sigI32Echo  = echo("foo_i32_echo", marshal.I32Type)
	sigI64Echo  = echo("foo_i64_echo", marshal.I64Type)
	sigF32Echo  = echo("foo_f32_echo", marshal.F32Type)
	sigF64Echo  = echo("foo_f64_echo", marshal.F64Type)

	sigDurationMillisEcho       = echo("foo_duration_ms_echo", marshal.DurationMillis)
	sigDurationSecondsEcho      = echo("foo_duration_s_echo", marshal.DurationSeconds)
	sigDurationSecondsFloatEcho = echo("foo_duration_s_float_echo", marshal.DurationSecondsFloat)

	sigEnumZeroToFiveEcho = echo("foo_enum_zero_to_five_echo", enumZeroToFiveType)
	sigEnumOneToSixEcho   = echo("foo_enum_one_to_six_echo", enumOneToSixType)
	sigEnumDisjointEcho   = echo("foo_enum_disjoint_echo", enumDisjointType)
	sigEnumSingleEcho     = echo("foo_enum_single_echo", enumSingleType)

	sigStringEcho = &bridge.Signature{
		Symbol: "foo_string_echo",
		Params: []bridge.Param{{Name: "value", Type: marshal.StringType}},
		Result: marshal.StringType,
		Owned:  true,
	}
	sigStringLength = &bridge.Signature{
		Symbol: "foo_string_length",
		Params: []bridge.Param{{Name: "value", Type: marshal.StringType}},
		Result: marshal.U32Type,
	}
	sigStringCharCount = &bridge.Signature{
		Symbol: "foo_string_char_count",
		Params: []bridge.Param{{Name: "value", Type: marshal.StringType}},
		Result: marshal.U32Type,
	}

	sigStructByValueEcho     = echo("foo_struct_by_value_echo", structureType)
	sigStructByReferenceEcho = &bridge.Signature{
		Symbol: "foo_struct_by_reference_echo",
		Params: []bridge.Param{{Name: "value", Type: structureType, ByRef: true}},
		Result: structureType,
	}

	sigCollectionSize = &bridge.Signature{
		Symbol: "foo_collection_size",
		Params: []bridge.Param{{Name: "col", Type: stringCollectionType}},
		Result: marshal.U32Type,
	}
	sigCollectionGet = &bridge.Signature{
		Symbol: "foo_collection_get",
		Params: []bridge.Param{
			{Name: "col", Type: stringCollectionType},
			{Name: "idx", Type: marshal.U32Type},
		},
		Result: marshal.StringType,
	}
	sigCollectionJoin = &bridge.Signature{
		Symbol: "foo_collection_join",
		Params: []bridge.Param{
			{Name: "col", Type: stringCollectionType},
			{Name: "separator", Type: marshal.StringType},
		},
		Result: marshal.StringType,
		Owned:  true,
	}

	sigInvokeStringCallback = &bridge.Signature{
		Symbol: "foo_invoke_string_callback",
		Params: []bridge.Param{
			{Name: "value", Type: marshal.StringType},
			{Name: "callback", Type: stringIteratorReceiver.Type()},
		},
	}
	sigInvokeRangeCallback = &bridge.Signature{
		Symbol: "foo_invoke_int32_callback",
		Params: []bridge.Param{{Name: "callback", Type: rangeIteratorReceiver.Type()}},
	}
	sigInvokeChunked = &bridge.Signature{
		Symbol: "foo_invoke_chunked",
		Params: []bridge.Param{
			{Name: "value", Type: marshal.StringType},
			{Name: "chunk_size", Type: marshal.U32Type},
			{Name: "callback", Type: chunkReceiver.Type()},
		},
	}

	sigCallbackSourceNew     = &bridge.Signature{Symbol: "foo_cbsource_new", Result: marshal.HandleType}
	sigCallbackSourceDestroy = bridge.Destructor("foo_cbsource_destroy")
	sigSetInterface          = &bridge.Signature{
		Symbol: "foo_cbsource_set_interface",
		Params: []bridge.Param{bridge.Instance(), {Name: "cb", Type: callbackInterface.Type()}},
	}
	sigAddOneShot = &bridge.Signature{
		Symbol: "foo_cbsource_add_one_shot",
		Params: []bridge.Param{bridge.Instance(), {Name: "cb", Type: callbackInterface.Type()}},
	}
	sigSetValue = &bridge.Signature{
		Symbol: "foo_cbsource_set_value",
		Params: []bridge.Param{bridge.Instance(), {Name: "value", Type: marshal.U32Type}},
		Result: marshal.U32Type,
	}
	sigSetDuration = &bridge.Signature{
		Symbol: "foo_cbsource_set_duration",
		Params: []bridge.Param{bridge.Instance(), {Name: "value", Type: marshal.DurationMillis}},
		Result: marshal.DurationMillis,
	}

	sigGetU32Value = &bridge.Signature{
		Symbol: "foo_get_u32_value",
		Params: []bridge.Param{{Name: "cb", Type: defaultedInterface.Type()}},
		Result: marshal.U32Type,
	}
	sigGetDurationValue = &bridge.Signature{
		Symbol: "foo_get_duration_value",
		Params: []bridge.Param{{Name: "cb", Type: defaultedInterface.Type()}},
		Result: marshal.DurationMillis,
	}

	sigClassWithPasswordNew = &bridge.Signature{
		Symbol: "foo_class_with_password_new",
		Params: []bridge.Param{{Name: "password", Type: marshal.StringType}},
		Result: marshal.HandleType,
		Errors: myErrorType,
	}
	sigClassWithPasswordDestroy    = bridge.Destructor("foo_class_with_password_destroy")
	sigGetSpecialValueFromInstance = &bridge.Signature{
		Symbol: "foo_get_special_value_from_instance",
		Params: []bridge.Param{bridge.Instance()},
		Result: marshal.U32Type,
		Errors: myErrorType,
	}
	sigGetSpecialValue = &bridge.Signature{
		Symbol: "foo_get_special_value",
		Params: []bridge.Param{{Name: "password", Type: marshal.StringType}},
		Result: marshal.U32Type,
		Errors: myErrorType,
	}
	sigEchoPassword = &bridge.Signature{
		Symbol: "foo_echo_password",
		Params: []bridge.Param{{Name: "password", Type: marshal.StringType}},
		Result: marshal.StringType,
		Errors: myErrorType,
		Owned:  true,
	}
	sigGetStruct = &bridge.Signature{
		Symbol:  "foo_get_struct",
		Params:  []bridge.Param{{Name: "password", Type: marshal.StringType}},
		Result:  innerStructureType,
		Errors:  myErrorType,
		Partial: true,
	}

	sigStringClassNew     = &bridge.Signature{Symbol: "foo_string_class_new", Result: marshal.HandleType}
	sigStringClassDestroy = bridge.Destructor("foo_string_class_destroy")
	sigStringClassEcho    = &bridge.Signature{
		Symbol: "foo_string_class_echo",
		Params: []bridge.Param{bridge.Instance(), {Name: "value", Type: marshal.StringType}},
		Result: marshal.StringType,
	}

	sigOpaqueStructMagicInit = &bridge.Signature{
		Symbol: "foo_opaque_struct_magic_init",
		Result: opaqueStructType,
	}
	sigOpaqueStructGetID = &bridge.Signature{
		Symbol: "foo_opaque_struct_get_id",
		Params: []bridge.Param{{Name: "value", Type: opaqueStructType}},
		Result: marshal.U64Type,
	}

	sigInvokeUniversalInterface = &bridge.Signature{
		Symbol: "foo_invoke_universal_interface",
		Params: []bridge.Param{
			{Name: "value", Type: universalOuterType},
			{Name: "callback", Type: universalInterface.Type()},
		},
		Result: universalOuterType,
	}

	sigPrimitivePointersNew     = &bridge.Signature{Symbol: "foo_primitive_pointers_new", Result: marshal.HandleType}
	sigPrimitivePointersDestroy = bridge.Destructor("foo_primitive_pointers_destroy")
	sigGetBoolPointer           = pointerGetter("foo_primitive_pointers_get_bool", marshal.BoolType)
	sigGetU8Pointer             = pointerGetter("foo_primitive_pointers_get_u8", marshal.U8Type)
	sigGetFloatPointer          = pointerGetter("foo_primitive_pointers_get_float", marshal.F32Type)
	sigGetDoublePointer         = pointerGetter("foo_primitive_pointers_get_double", marshal.F64Type)

	sigTestClassNew = &bridge.Signature{
		Symbol: "foo_testclass_new",
		Params: []bridge.Param{{Name: "value", Type: marshal.U32Type}},
		Result: marshal.HandleType,
	}
	sigTestClassDestroy  = bridge.Destructor("foo_testclass_destroy")
	sigTestClassGetValue = &bridge.Signature{
		Symbol: "foo_testclass_get_value",
		Params: []bridge.Param{bridge.Instance()},
		Result: marshal.U32Type,
	}
	sigTestClassIncrementValue = &bridge.Signature{
		Symbol: "foo_testclass_increment_value",
		Params: []bridge.Param{bridge.Instance()},
	}
	sigConstructionCounter = &bridge.Signature{
		Symbol: "foo_testclass_construction_counter",
		Result: marshal.U32Type,
	}

	sigThreadClassNew = &bridge.Signature{
		Symbol: "foo_thread_class_new",
		Params: []bridge.Param{
			{Name: "value", Type: marshal.U32Type},
			{Name: "receiver", Type: valueChangeListener.Type()},
		},
		Result: marshal.HandleType,
	}
	sigThreadClassDestroy = bridge.Destructor("foo_thread_class_destroy")
	sigThreadClassUpdate  = &bridge.Signature{
		Symbol: "foo_thread_class_update",
		Params: []bridge.Param{bridge.Instance(), {Name: "value", Type: marshal.U32Type}},
	}
	sigThreadClassAdd = &bridge.Signature{
		Symbol: "foo_thread_class_add",
		Params: []bridge.Param{
			bridge.Instance(),
			{Name: "value", Type: marshal.U32Type},
			{Name: "callback", Type: addHandler.Type()},
		},
	}
	sigThreadClassExecute = &bridge.Signature{
		Symbol: "foo_thread_class_execute",
		Params: []bridge.Param{bridge.Instance(), {Name: "operation", Type: operationInterface.Type()}},
	}
	sigThreadClassQueueError = &bridge.Signature{
		Symbol: "foo_thread_class_queue_error",
		Params: []bridge.Param{bridge.Instance(), {Name: "err", Type: mathIsBrokenType}},
	}
	sigThreadClassDropNextAdd = &bridge.Signature{
		Symbol: "foo_thread_class_drop_next_add",
		Params: []bridge.Param{bridge.Instance()},
	}
)
