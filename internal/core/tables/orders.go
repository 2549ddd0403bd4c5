package tables

import "github.com/ArmandoRuiz13/registro/internal/core"

func init() {
	registerOrders()
}

func registerOrders() {
	statuses := make([]string, len(core.PaymentStatuses))
	for i, st := range core.PaymentStatuses {
		statuses[i] = string(st)
	}

	core.Register(core.SheetDefinition{
		Info: core.SheetInfo{
			Key:   core.SheetOrders,
			Label: "Ventas",
			Path:  "/",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: core.ColRegisteredAt, Aliases: []string{"fecha", "registered_at"}, Type: core.FieldDate},
			required(text(core.ColProduct, "producto", "product")),
			text(core.ColStore, "tienda", "store"),
			numeric(core.ColGrossUSD, "usd bruto", "gross_cost"),
			derived(numeric(core.ColTaxUSD, "usd con 8.25", "tax_cost")),
			derived(numeric(core.ColEquivUSD, "usd final eq", "equivalent_cost")),
			numeric(core.ColRate, "tc mercado", "exchange_rate"),
			derived(numeric(core.ColCommission, "comision pagada mxn", "commission")),
			derived(numeric(core.ColTotalCost, "costo total mxn", "total_cost")),
			numeric(core.ColSale, "venta mxn", "sale_price"),
			derived(numeric(core.ColProfit, "ganancia mxn", "profit")),
			derived(core.FieldSpec{Name: core.ColWeek, Aliases: []string{"rango semana", "week_range"}, Type: core.FieldText}),
			{
				Name:       core.ColStatus,
				Aliases:    []string{"estado pago", "status"},
				Type:       core.FieldEnum,
				EnumValues: statuses,
				Normalizer: normalizeStatus,
			},
			numeric(core.ColReceived, "monto recibido", "received"),
		},
	})
}
