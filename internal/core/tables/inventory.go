package tables

import "github.com/ArmandoRuiz13/registro/internal/core"

func init() {
	registerInventory()
}

func registerInventory() {
	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:   core.SheetInventory,
			Label: "Inventario",
			Path:  "/inventario",
		},
		FieldSpecs: []core.FieldSpec{
			required(text(core.ColItemProduct, "product")),
			text(core.ColItemStore, "store"),
			numeric(core.ColItemCost, "precio", "cost_price"),
			numeric(core.ColItemSale, "precio de venta", "sale_price"),
			text(core.ColItemColor, "color"),
			text(core.ColItemSize, "size"),
			numeric(core.ColItemQty, "quantity"),
			numeric(core.ColItemSold, "vendido", "sold"),
		},
	})
}
