package schema

// ResponseList is the schema of the per-form response-list streams. These
// streams exist to feed detail fetches and carry the replication key.
func ResponseList() *Schema {
	return New(
		Property{"id", Integer},
		Property{"created", DateTime},
		Property{"updated", DateTime},
	)
}

// Roles is the fixed schema of the roles stream.
func Roles() *Schema {
	return New(
		Property{"id", String},
		Property{"name", String},
	)
}

// Users is the fixed schema of the users stream.
func Users() *Schema {
	return New(
		Property{"created", Integer},
		Property{"registered_on", Integer},
		Property{"supervisor_id", String},
		Property{"mentor_id", String},
		Property{"hse_id", String},
		Property{"manager_id", String},
		Property{"clients_id", StringArray},
		Property{"firstname", String},
		Property{"lastname", String},
		Property{"employeeNumber", String},
		Property{"email", Email},
		Property{"username", String},
		Property{"cellPhone", String},
		Property{"hireDate", Integer},
		Property{"sseDate", Integer},
		Property{"terminationDate", Integer},
		Property{"emergencyContact", String},
		Property{"isDriver", Boolean},
		Property{"isRegulatedDriver", Boolean},
		Property{"role_id", String},
		Property{"metavalues", Object},
		Property{"creator_id", Object},
		Property{"fieldOffice_id", StringArray},
		Property{"lineOfBusiness_id", StringArray},
		Property{"lastWebAccess", Integer},
		Property{"lastMobileAccess", Integer},
		Property{"id", String},
	)
}

// LinesOfBusiness is the fixed schema of the lines_of_business stream.
func LinesOfBusiness() *Schema {
	return New(
		Property{"name", String},
		Property{"code", String},
		Property{"created", Integer},
		Property{"id", String},
	)
}
