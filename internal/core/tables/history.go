package tables

import "github.com/ArmandoRuiz13/registro/internal/core"

func init() {
	registerHistory()
}

// The history sheet is written only by the journal, so it has no
// normalizers or aliases.
func registerHistory() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:   core.SheetHistory,
			Label: "Historial",
			Path:  "/historial",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: core.ColHistID, Type: core.FieldText},
			{Name: core.ColHistTime, Type: core.FieldDate},
			{Name: core.ColHistAction, Type: core.FieldEnum},
			{Name: core.ColHistSeverity, Type: core.FieldEnum},
			{Name: core.ColHistSheet, Type: core.FieldText},
			{Name: core.ColHistRow, Type: core.FieldText},
			{Name: core.ColHistColumn, Type: core.FieldText},
			{Name: core.ColHistOld, Type: core.FieldText},
			{Name: core.ColHistNew, Type: core.FieldText},
			{Name: core.ColHistDetail, Type: core.FieldText},
			{Name: core.ColHistIP, Type: core.FieldText},
			{Name: core.ColHistUserAgent, Type: core.FieldText},
		},
	})
}
