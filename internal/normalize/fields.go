package normalize

import "github.com/yourorg/feed-sync/feed"

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindTextArray
	KindTimestamp
)

// Field maps raw input to one column of the listings table.
type Field struct {
	Column string
	Kind   Kind
	Rule   Rule
}

const (
	ColumnListingKey   = "listing_key"
	ColumnModifiedAt   = "modification_timestamp"
	ColumnUnitNumber   = "unit_number"
	ColumnFeatures     = "features"
	ColumnImageURLs    = "image_urls"
	ColumnAddress      = "address"
	ColumnAddressKey   = "address_key"
	transactionField   = "TransactionType"
)

var (
	isLease = HasToken(transactionField, "lease")

	streetAddress = FirstOf(
		Title("UnparsedAddress"),
		Joined("StreetNumber", "StreetDirPrefix", "StreetName", "StreetSuffix", "StreetDirSuffix"),
	)
)

// Fields is the full mapping from a feed listing to a stored record.
// Column order here is the column order of the table.
var Fields = []Field{
	{ColumnListingKey, KindText, Text(feed.ListingKeyField)},
	{ColumnModifiedAt, KindTimestamp, Timestamp(feed.ModificationField)},
	{"original_entry_timestamp", KindTimestamp, Timestamp("OriginalEntryTimestamp")},
	{"list_date", KindTimestamp, FirstOf(Timestamp("ListingContractDate"), Timestamp("OriginalEntryTimestamp"))},
	{"expiration_date", KindTimestamp, Timestamp("ExpirationDate")},

	{"standard_status", KindText, Title("StandardStatus")},
	{"mls_status", KindText, Title("MlsStatus")},
	{"contract_status", KindText, Title("ContractStatus")},
	{"transaction_type", KindText, Title("TransactionType")},
	{"property_type", KindText, Title("PropertyType")},
	{"property_sub_type", KindText, Title("PropertySubType")},

	{"list_price", KindNumber, Number("ListPrice")},
	{"original_list_price", KindNumber, Number("OriginalListPrice")},
	{"close_price", KindNumber, Number("ClosePrice")},

	{ColumnAddress, KindText, streetAddress},
	{"street_number", KindText, Text("StreetNumber")},
	{"street_name", KindText, Title("StreetName")},
	{"street_suffix", KindText, Title("StreetSuffix")},
	{"street_direction", KindText, FirstOf(Text("StreetDirSuffix"), Text("StreetDirPrefix"))},
	{ColumnUnitNumber, KindText, When(isLease, Text("UnitNumber"))},
	{"city", KindText, Title("City")},
	{"city_region", KindText, Title("CityRegion")},
	{"county", KindText, Title("CountyOrParish")},
	{"state_or_province", KindText, Text("StateOrProvince")},
	{"postal_code", KindText, Text("PostalCode")},
	{"country", KindText, Text("Country")},
	{"cross_street", KindText, Title("CrossStreet")},
	{"latitude", KindNumber, Number("Latitude")},
	{"longitude", KindNumber, Number("Longitude")},

	{"bedrooms", KindNumber, FirstOf(Number("BedroomsTotal"), Number("BedroomsAboveGrade"))},
	{"bedrooms_below_grade", KindNumber, Number("BedroomsBelowGrade")},
	{"bathrooms", KindNumber, FirstOf(Number("BathroomsTotalInteger"), Number("BathroomsFull"))},
	{"kitchens", KindNumber, FirstOf(Number("KitchensTotal"), Number("KitchensAboveGrade"))},
	{"rooms_total", KindNumber, Number("RoomsTotal")},
	{"living_area_range", KindText, Text("LivingAreaRange")},
	{"living_area", KindNumber, FirstOf(Number("LivingArea"), Number("BuildingAreaTotal"))},
	{"lot_width", KindNumber, Number("LotWidth")},
	{"lot_depth", KindNumber, Number("LotDepth")},
	{"lot_size_units", KindText, Title("LotSizeUnits")},
	{"approximate_age", KindText, Text("ApproximateAge")},

	{"architectural_style", KindTextArray, Array("ArchitecturalStyle")},
	{"basement", KindTextArray, Array("Basement")},
	{"construction_materials", KindTextArray, Array("ConstructionMaterials")},
	{"heating_type", KindText, Title("HeatType")},
	{"heating_source", KindText, Title("HeatSource")},
	{"cooling", KindTextArray, Array("Cooling")},
	{"garage_type", KindText, Title("GarageType")},
	{"parking_total", KindNumber, FirstOf(Number("ParkingTotal"), Number("ParkingSpaces"))},
	{"parking_features", KindTextArray, Array("ParkingFeatures")},
	{"pool_features", KindTextArray, Array("PoolFeatures")},
	{"interior_features", KindTextArray, Array("InteriorFeatures")},
	{"exterior_features", KindTextArray, Array("ExteriorFeatures")},
	{ColumnFeatures, KindTextArray, Features("PropertyFeatures",
		Append{Token: "Fireplace", If: Equals("FireplaceYN", "Y")},
		Append{Token: "Pool", If: Present(Array("PoolFeatures"))},
		Append{Token: "Garage", If: NotIn("GarageType", "None", "No")},
		Append{Token: "Central Vacuum", If: Equals("CentralVacuumYN", "Y")},
		Append{Token: "Waterfront", If: Equals("WaterfrontYN", "Y")},
		Append{Token: "Locker", If: NotIn("Locker", "None", "No")},
	)},

	{"has_fireplace", KindBool, Flag("FireplaceYN", "Y")},
	{"has_central_vacuum", KindBool, Flag("CentralVacuumYN", "Y")},
	{"is_waterfront", KindBool, Flag("WaterfrontYN", "Y")},
	{"is_furnished", KindBool, Flag("Furnished", "Furnished")},

	{"tax_annual_amount", KindNumber, Number("TaxAnnualAmount")},
	{"tax_year", KindNumber, Number("TaxYear")},
	{"association_fee", KindNumber, Number("AssociationFee")},
	{"lease_term", KindText, When(isLease, Title("LeaseTerm"))},

	{"public_remarks", KindText, Text("PublicRemarks")},
	{"list_office_name", KindText, Title("ListOfficeName")},
	{"virtual_tour_url", KindText, FirstOf(Text("VirtualTourURLUnbranded"), Text("VirtualTourURLBranded"))},
	{ColumnImageURLs, KindTextArray, ImageURLs()},
	{ColumnAddressKey, KindText, AddressKey(streetAddress, "City", "StateOrProvince", "PostalCode")},
}
