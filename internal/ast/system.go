package ast

// SystemMember is one contract belonging to a System.
type SystemMember struct {
	ID   string
	Path string
}

// SharedPersona binds a persona id to the list of member-contract ids
// it acts across.
type SharedPersona struct {
	Persona   string
	Contracts []string
}

// FlowTrigger routes a source flow's outcome to a target flow in
// another member contract. On must be one of
// {success, failure, escalation}.
type FlowTrigger struct {
	SourceContract string
	SourceFlow     string
	On             string
	TargetContract string
	TargetFlow     string
	Persona        string
}

// SharedEntity binds an entity id to the member contracts that share
// its instances.
type SharedEntity struct {
	Entity    string
	Contracts []string
}

// System composes member contracts under shared personas, entities, and
// flow triggers.
type System struct {
	ID             string
	Prov           Provenance
	Members        []SystemMember
	SharedPersonas []SharedPersona
	Triggers       []FlowTrigger
	SharedEntities []SharedEntity
}
