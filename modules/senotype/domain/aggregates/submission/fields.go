package submission

const (
	PredicateTaxon         = "in_taxon"
	PredicateLocation      = "located_in"
	PredicateCellType      = "has_cell_type"
	PredicateHallmark      = "has_hallmark"
	PredicateObservable    = "has_molecular_observable"
	PredicateInducer       = "has_inducer"
	PredicateAssay         = "has_assay"
	PredicateContext       = "has_context"
	PredicateCitation      = "has_citation"
	PredicateOrigin        = "has_origin"
	PredicateDataset       = "has_dataset"
	PredicateMarkerSet     = "has_characterizing_marker_set"
	PredicateUpRegulates   = "up_regulates"
	PredicateDownRegulates = "down_regulates"
	PredicateInconclusive  = "inconclusively_regulates"
)

// PredicateIRIs maps predicate terms to their relation ontology IRIs where one exists.
var PredicateIRIs = map[string]string{
	PredicateTaxon:    "http://purl.obolibrary.org/obo/RO_0002162",
	PredicateLocation: "http://purl.obolibrary.org/obo/RO_0001025",
}

// Context object types stored under has_context.
const (
	ContextAge = "age"
	ContextBMI = "bmi"
	ContextSex = "sex"
)

// Vocabulary says where the codes of a list come from.
type Vocabulary string

const (
	VocabularyValueset Vocabulary = "valueset"
	VocabularyLookup   Vocabulary = "lookup"
)

// ListField describes one repeatable field of the edit form and the
// assertion it is stored under.
type ListField struct {
	Name        string
	Label       string
	Predicate   string
	ContextType string
	Directional bool
	Vocabulary  Vocabulary
	// Sources are lookup profile names, default first.
	Sources []string
}

// Lists is the repeatable field inventory in page order.
var Lists = []ListField{
	{Name: "taxon", Label: "Taxon", Predicate: PredicateTaxon, Vocabulary: VocabularyValueset},
	{Name: "location", Label: "Location", Predicate: PredicateLocation, Vocabulary: VocabularyValueset},
	{Name: "celltype", Label: "Cell type", Predicate: PredicateCellType, Vocabulary: VocabularyLookup, Sources: []string{"celltype"}},
	{Name: "hallmark", Label: "Hallmark", Predicate: PredicateHallmark, Vocabulary: VocabularyValueset},
	{Name: "observable", Label: "Molecular observable", Predicate: PredicateObservable, Vocabulary: VocabularyValueset},
	{Name: "inducer", Label: "Inducer", Predicate: PredicateInducer, Vocabulary: VocabularyValueset},
	{Name: "assay", Label: "Assay", Predicate: PredicateAssay, Vocabulary: VocabularyValueset},
	{Name: "sex", Label: "Sex", Predicate: PredicateContext, ContextType: ContextSex, Vocabulary: VocabularyValueset},
	{Name: "citation", Label: "Citation", Predicate: PredicateCitation, Vocabulary: VocabularyLookup, Sources: []string{"citation"}},
	{Name: "origin", Label: "Origin", Predicate: PredicateOrigin, Vocabulary: VocabularyLookup, Sources: []string{"origin"}},
	{Name: "dataset", Label: "Dataset", Predicate: PredicateDataset, Vocabulary: VocabularyLookup, Sources: []string{"dataset"}},
	{Name: "marker", Label: "Specified marker", Predicate: PredicateMarkerSet, Vocabulary: VocabularyLookup, Sources: []string{"gene", "protein"}},
	{Name: "regmarker", Label: "Regulating marker", Directional: true, Vocabulary: VocabularyLookup, Sources: []string{"gene", "protein"}},
}

// RegulationPredicates are the predicates a directional entry can be stored under.
var RegulationPredicates = []string{PredicateUpRegulates, PredicateDownRegulates, PredicateInconclusive}

func ListByName(name string) (ListField, bool) {
	for _, l := range Lists {
		if l.Name == name {
			return l, true
		}
	}
	return ListField{}, false
}

// Scalar control identifiers.
const (
	FieldID             = "senotypeid"
	FieldName           = "senotypename"
	FieldDefinition     = "senotypedescription"
	FieldDOI            = "doi"
	FieldSubmitterFirst = "submitterfirst"
	FieldSubmitterLast  = "submitterlast"
	FieldSubmitterEmail = "submitteremail"
	FieldAgeValue       = "agevalue"
	FieldAgeLower       = "agelowerbound"
	FieldAgeUpper       = "ageupperbound"
	FieldAgeUnit        = "ageunit"
	FieldBMIValue       = "bmivalue"
	FieldBMILower       = "bmilowerbound"
	FieldBMIUpper       = "bmiupperbound"
	FieldBMIUnit        = "bmiunit"
)
