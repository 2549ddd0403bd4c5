package core

// FieldType represents the expected data type of a sheet column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
)

// FieldSpec describes one column of a registered sheet.
type FieldSpec struct {
	Name       string              // Canonical header, written on persist
	Aliases    []string            // Other headers accepted on read (matched case-insensitively)
	Type       FieldType           // Expected data type
	Required   bool                // Imported rows must have a value
	Derived    bool                // Computed from other columns when the row is created
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation applied to edited values
}

// Default returns the cell value used when the column is missing from a sheet.
func (f FieldSpec) Default() string {
	if f.Type == FieldNumeric {
		return "0"
	}
	return ""
}

// Matches reports whether header names this field.
func (f FieldSpec) Matches(header string) bool {
	h := normalizeHeader(header)
	if h == normalizeHeader(f.Name) {
		return true
	}
	for _, a := range f.Aliases {
		if h == normalizeHeader(a) {
			return true
		}
	}
	return false
}

// SheetInfo contains display information about a sheet.
type SheetInfo struct {
	Key     string   // Sheet name on the backend: "orders", "Inventario"
	Label   string   // Display name: "Ventas"
	Path    string   // Page path in the web UI
	Columns []string // Canonical header, derived from FieldSpecs
}

// SheetDefinition contains everything needed to read and write a sheet.
type SheetDefinition struct {
	Info       SheetInfo
	FieldSpecs []FieldSpec
}

// Field returns the FieldSpec whose name or alias matches column.
func (d SheetDefinition) Field(column string) (FieldSpec, bool) {
	for _, f := range d.FieldSpecs {
		if f.Matches(column) {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Sheet keys.
const (
	SheetOrders    = "orders"
	SheetInventory = "Inventario"
	SheetHistory   = "Historial"
)

// Order columns, in their stored casing.
const (
	ColRegisteredAt = "FECHA_REGISTRO"
	ColProduct      = "PRODUCTO"
	ColStore        = "TIENDA"
	ColGrossUSD     = "USD_BRUTO"
	ColTaxUSD       = "USD_CON_8.25"
	ColEquivUSD     = "USD_FINAL_EQ"
	ColRate         = "TC_MERCADO"
	ColCommission   = "COMISION_PAGADA_MXN"
	ColTotalCost    = "COSTO_TOTAL_MXN"
	ColSale         = "VENTA_MXN"
	ColProfit       = "GANANCIA_MXN"
	ColWeek         = "RANGO_SEMANA"
	ColStatus       = "ESTADO_PAGO"
	ColReceived     = "MONTO_RECIBIDO"
)

// Inventory columns.
const (
	ColItemProduct = "Producto"
	ColItemStore   = "Tienda"
	ColItemCost    = "Precio MXN"
	ColItemSale    = "Precio Venta"
	ColItemColor   = "Color"
	ColItemSize    = "Talla"
	ColItemQty     = "Cantidad"
	ColItemSold    = "Vendidos"
)

// History columns.
const (
	ColHistID        = "ID"
	ColHistTime      = "FECHA"
	ColHistAction    = "ACCION"
	ColHistSeverity  = "SEVERIDAD"
	ColHistSheet     = "HOJA"
	ColHistRow       = "FILA"
	ColHistColumn    = "COLUMNA"
	ColHistOld       = "VALOR_ANTERIOR"
	ColHistNew       = "VALOR_NUEVO"
	ColHistDetail    = "DETALLE"
	ColHistIP        = "IP"
	ColHistUserAgent = "USER_AGENT"
)

// Store and size choices offered by the forms.
var (
	Stores = []string{"Hollister", "American Eagle", "Macys", "Finishline", "Guess", "Nike", "Aeropostale", "JDSports", StoreCustom}
	Sizes  = []string{"XXS", "XS", "S", "M", "L", "XL", "XXL", SizeOther}
)

const (
	// StoreCustom selects the free-text store name.
	StoreCustom = "CUSTOM"
	// SizeOther selects the free-text size.
	SizeOther = "Numérica/Otra"
)
