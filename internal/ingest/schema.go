package ingest

// column is one logical field of a table with the headers it may appear
// under in SAP exports.
type column struct {
	name     string
	aliases  []string
	required bool
}

func req(name string, aliases ...string) column {
	return column{name: name, aliases: aliases, required: true}
}

func opt(name string, aliases ...string) column {
	return column{name: name, aliases: aliases}
}

var schemas = map[Kind][]column{
	KindPicks: {
		req("delivery", "Delivery", "Lieferung"),
		req("material", "Material", "Materialnummer"),
		req("quantity", "Act.qty (dest)", "Quantity", "Istmenge Nach"),
		opt("queue", "Queue"),
		opt("removal", "Removal of total SU", "Entnahme gesamte LE"),
		opt("transfer_order", "Transfer Order Number", "Transportauftragsnummer"),
		opt("storage_bin", "Source Storage Bin", "Storage Bin", "Von-Lagerplatz"),
		opt("handling_unit", "Source Handling Unit", "Handling Unit"),
		opt("storage_unit_type", "Storage Unit Type", "Lagereinheitentyp"),
		opt("user", "User", "Benutzer"),
		opt("confirmation_date", "Confirmation date", "Quittierungsdatum"),
	},
	KindQueues: {
		req("queue", "Queue"),
		opt("transfer_order", "Transfer Order Number", "Transportauftragsnummer"),
		opt("sd_document", "SD Document", "Vertriebsbeleg"),
		opt("confirmation_date", "Confirmation Date", "Quittierungsdatum"),
		opt("creation_date", "Creation Date", "Erstellungsdatum"),
	},
	KindPackaging: {
		req("material", "Material"),
		req("uom", "Alternative Unit of Measure", "Alternative Mengeneinheit"),
		req("numerator", "Numerator", "Zähler"),
		opt("gross_weight", "Gross Weight", "Bruttogewicht"),
		opt("weight_unit", "Unit of Weight", "Gewichtseinheit"),
		opt("length", "Length", "Länge"),
		opt("width", "Width", "Breite"),
		opt("height", "Height", "Höhe"),
		opt("dimension_unit", "Unit of Dimension", "Maßeinheit"),
	},
	KindOverrides: {
		req("material", "Material", "Materiál", "Material Number"),
		req("description", "Description", "Packaging", "Balení", "Popis"),
	},
	KindHandlingUnits: {
		req("internal_id", "Internal HU", "HU-Nummer intern", "Internal Handling Unit"),
		req("delivery", "Generated delivery", "generierte Lieferung"),
		opt("external_id", "Handling Unit", "Handling Unit extern"),
		opt("parent", "Higher-Level HU", "Übergeordnete HU", "Higher-level Handling Unit"),
		opt("packaging_type", "Packmittelart", "Packing Material Type"),
	},
	KindContents: {
		req("hu", "Internal HU", "HU-Nummer intern"),
		opt("lower", "Lower-level HU", "Untergeordnete HU"),
		opt("delivery", "Delivery", "Lieferung"),
		opt("material", "Material"),
	},
	KindCategories: {
		req("delivery", "Lieferung", "Delivery"),
		req("category", "Kategorie", "Category"),
		opt("kind", "Art", "Kind"),
	},
	KindDeliveries: {
		req("delivery", "Lieferung", "Delivery"),
		opt("shipping_point", "Versandstelle", "Shipping Point"),
		opt("carrier", "Spediteur", "Carrier", "Forwarding Agent"),
	},
	KindShippingPoints: {
		req("shipping_point", "Versandstelle", "Shipping Point"),
		req("order_type", "Order Type", "Auftragsart"),
	},
	KindCarriers: {
		req("carrier", "Spediteur", "Carrier", "Forwarding Agent"),
		req("kep", "KEP", "KEP-fähig", "KEP flag"),
	},
	KindDirectMovements: {
		req("hu", "Handling Unit", "Internal HU", "HU"),
	},
	KindPackingTimes: {
		req("delivery", "Delivery", "Lieferung"),
		req("minutes", "Process_Time_Min", "Process Time", "Packing Time"),
		opt("customer", "CUSTOMER", "Customer", "Kunde"),
		opt("material", "Material"),
		opt("klt", "KLT"),
		opt("pallets", "Palety", "Pallets"),
		opt("cartons", "Cartons"),
		opt("serial_scan", "Scanning serial numbers"),
		opt("label_reprint", "Reprinting labels"),
		opt("difficult_klt", "Difficult KLTs"),
	},
}
