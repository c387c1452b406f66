package model

// Markers of the antiSMASH GenBank record format. The format is fixed upstream,
// so every parser in this package goes through these constants.
const (
	// Separates the feature table from the nucleotide sequence. The newline
	// keeps it from matching "ORIGIN" inside a definition line.
	OriginDelimiter = "ORIGIN\n"

	// Separates CDS feature blocks. The padding keeps it from matching "CDS"
	// inside a translation or a cluster name.
	CDSDelimiter = "   CDS   "

	// Present in files that hold exactly one cluster region.
	SingleClusterLabel = "NOTE: This is a single cluster extracted from a larger record!"

	DefinitionTag    = "DEFINITION"
	GeneKindTag      = "/gene_kind="
	LocusTag         = "/locus_tag="
	TranslationTag   = "/translation="
	ProductFunctions = `/gene_functions="biosynthetic (rule-based-clusters)`

	// Gene kinds
	KindCore       = "biosynthetic"
	KindAdditional = "biosynthetic-additional"
	KindTransport  = "transport"
	KindRegulatory = "regulatory"
	KindResistance = "resistance"

	// Placeholders for undetermined residues. The nucleotide check runs on the
	// lower-cased sequence.
	AmbiguousNucleotide = "n"
	AmbiguousAminoAcid  = "X"

	// File extension of analyzable records.
	RecordExtension = ".gbk"
)

// Predefined product groups for statistics, in report order.
var ProductGroups = []string{
	"hybrid",
	"others",
	"RiPP",
	"NRPS-like",
	"T1PKS",
	"NRPS",
	"arylpolyene",
	"T3PKS",
	"terpene",
}

// Products reported under the RiPP group.
var RiPPProducts = map[string]bool{
	"RRE-containing":          true,
	"LAP":                     true,
	"lanthipeptide-class-i":   true,
	"lanthipeptide-class-ii":  true,
	"lanthipeptide-class-iii": true,
	"lanthipeptide-class-iv":  true,
	"thiopeptide":             true,
}
