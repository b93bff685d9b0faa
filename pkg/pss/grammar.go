package pss

// Rule identifies the grammar production a node was built from.
type Rule int

const (
	RuleInvalid Rule = iota

	// statements
	RulePage
	RuleWorld
	RuleSelectWorld
	RuleSetLayerOn
	RuleSetLayerOff
	RuleSetAnnotationIcon
	RuleDeclaration
	RuleStatementHeader
	RuleStatementDef

	// atoms
	RuleNumber
	RuleString
	RuleVariable
	RuleCall
	RuleRange

	// images
	RuleImage
	RuleMosaic
	RuleOnDemandMosaic
	RuleTransform
	RuleShapeImage
	RuleFilterImage
	RuleTranslucent
	RuleColorize

	// image metadata
	RuleImageShape
	RuleAlphaCube
	RuleRGBCube
	RuleLUVCube
	RuleGeorefContext
	RuleImageContext
	RuleAlphaPalette

	// shapes
	RuleRectangle
	RulePolygon
	RuleHoledShape
	RuleUnion
	RuleIntersect

	// transformations
	RuleIdentity
	RuleRotation
	RuleScaling
	RuleTranslation
	RuleAffine
	RuleProjective
	RuleLocalProjectiveGrid
	RuleComposed

	// filters
	RuleContrast
	RuleBrightness
	RuleConvolution
	RuleConvolution3
	RuleAutoContrastStretch
	RuleContrastStretch
	RuleTint
	RuleInvert
	RuleGamma
)

// production describes a keyword-introduced production: its arity, and
// whether it may take a trailing USING clause.
type production struct {
	rule Rule
	name string
	abbr string

	// max < 0 means unbounded
	min, max int
	// when set, the argument count must be one of these
	exact []int

	using bool
	// arguments may be written lo:hi
	ranges bool
	// statement productions are only allowed at document level
	statement bool
}

var productions = []*production{
	{rule: RulePage, name: "PAGE", abbr: "PG", min: 1, max: 2, statement: true},
	{rule: RuleWorld, name: "WORLD", abbr: "WO", min: 3, max: 3, statement: true},
	{rule: RuleSelectWorld, name: "SELECTWORLD", abbr: "SW", min: 1, max: 1, statement: true},
	{rule: RuleSetLayerOn, name: "SETLAYERON", abbr: "SLON", min: 2, max: -1, statement: true},
	{rule: RuleSetLayerOff, name: "SETLAYEROFF", abbr: "SLOFF", min: 2, max: -1, statement: true},
	{rule: RuleSetAnnotationIcon, name: "SETANNOTATIONICON", abbr: "SAI", min: 2, max: 2, statement: true},

	{rule: RuleImage, name: "IMAGE", abbr: "IM", min: 1, max: 4},
	{rule: RuleMosaic, name: "MOSAIC", abbr: "MO", min: 1, max: -1},
	{rule: RuleOnDemandMosaic, name: "ONDEMANDMOSAIC", abbr: "ODM", min: 1, max: -1},
	{rule: RuleTransform, name: "TRANSFORM", abbr: "TR", min: 2, max: 2, using: true},
	{rule: RuleShapeImage, name: "SHAPE", abbr: "SH", min: 2, max: 2},
	{rule: RuleFilterImage, name: "FILTER", abbr: "FI", min: 2, max: 2},
	{rule: RuleTranslucent, name: "TRANSLUCENT", abbr: "TL", min: 1, max: -1},
	{rule: RuleColorize, name: "COLORIZE", abbr: "CB", min: 7, max: 7},

	{rule: RuleImageShape, name: "IMAGESHAPE", abbr: "IS", min: 1, max: 1},
	{rule: RuleAlphaCube, name: "ALPHACUBE", abbr: "AC", min: 2, max: 2},
	{rule: RuleRGBCube, name: "RGBCUBE", abbr: "RGB", min: 6, max: 6},
	{rule: RuleLUVCube, name: "LUVCUBE", abbr: "LUV", min: 6, max: 6},
	{rule: RuleGeorefContext, name: "GEOREFCONTEXT", abbr: "GRC", min: 6, max: 6},
	{rule: RuleImageContext, name: "IMAGECONTEXT", abbr: "IC", min: 0, max: 0},
	{rule: RuleAlphaPalette, name: "ALPHAPALETTE", abbr: "AP", min: 2, max: -1, ranges: true},

	{rule: RuleRectangle, name: "RECTANGLE", abbr: "RE", min: 4, max: 4, using: true},
	{rule: RulePolygon, name: "POLYGON", abbr: "PO", min: 6, max: -1, using: true},
	{rule: RuleHoledShape, name: "HOLEDSHAPE", abbr: "HS", min: 1, max: -1},
	{rule: RuleUnion, name: "UNION", abbr: "UN", min: 1, max: -1},
	{rule: RuleIntersect, name: "INTERSECT", abbr: "INT", min: 1, max: -1},

	{rule: RuleIdentity, name: "IDENTITY", abbr: "ID", min: 0, max: 0},
	{rule: RuleRotation, name: "ROTATION", abbr: "ROT", min: 3, max: 3},
	{rule: RuleScaling, name: "SCALING", abbr: "SC", min: 4, max: 4},
	{rule: RuleTranslation, name: "TRANSLATION", abbr: "TRN", min: 2, max: 2},
	{rule: RuleAffine, name: "AFFINE", abbr: "AF", min: 6, max: 6},
	{rule: RuleProjective, name: "PROJECTIVE", abbr: "PR", min: 9, max: 9},
	{rule: RuleLocalProjectiveGrid, name: "LOCALPROJECTIVEGRID", abbr: "LPG", min: 8, max: -1},
	{rule: RuleComposed, name: "COMPOSED", abbr: "CO", min: 1, max: -1},

	{rule: RuleContrast, name: "CONTRAST", abbr: "CT", min: 1, max: 1},
	{rule: RuleBrightness, name: "BRIGHTNESS", abbr: "BR", min: 1, max: 1},
	{rule: RuleConvolution, name: "CONVOLUTION", abbr: "CV", min: 4, max: -1},
	{rule: RuleConvolution3, name: "CONVOLUTION3", abbr: "CV3", min: 3, max: 3},
	{rule: RuleAutoContrastStretch, name: "AUTOCONTRASTSTRETCH", abbr: "ACS", min: 2, max: 3},
	{rule: RuleContrastStretch, name: "CONTRASTSTRETCH", abbr: "CS", min: 2, max: 2},
	{rule: RuleTint, name: "TINT", abbr: "TI", min: 0, max: 3, exact: []int{0, 3}},
	{rule: RuleInvert, name: "INVERT", abbr: "INV", min: 0, max: 0},
	{rule: RuleGamma, name: "GAMMA", abbr: "GA", min: 1, max: 1},
}

// structural keywords, which are not productions of their own
var structural = map[string]Kind{
	"STATEMENT": KeywordStatement,
	"ST":        KeywordStatement,
	"RETURN":    KeywordReturn,
	"RET":       KeywordReturn,
	"END":       KeywordEnd,
	"INCLUDE":   KeywordInclude,
	"INC":       KeywordInclude,
	"USING":     KeywordUsing,
	"US":        KeywordUsing,
}

var (
	keywords  = map[string]*production{}
	ruleNames = map[Rule]string{
		RuleDeclaration:     "DECLARE",
		RuleStatementHeader: "STATEMENT",
		RuleStatementDef:    "DEFINE",
		RuleNumber:          "NUMBER",
		RuleString:          "STRING",
		RuleVariable:        "VARIABLE",
		RuleCall:            "CALL",
		RuleRange:           "RANGE",
	}
)

func init() {
	for _, p := range productions {
		keywords[p.name] = p
		keywords[p.abbr] = p
		ruleNames[p.rule] = p.name
	}
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "INVALID"
}

// checkArity reports argument count errors for a production at pos.
func (p *production) checkArity(pos position, args []NodeID, argPos func(int) position) error {
	n := len(args)
	if p.max >= 0 && n > p.max {
		return errAt(argPos(p.max), ErrTooManyParams, "too many parameters for %s", p.name)
	}
	if n < p.min {
		return errAt(pos, ErrTooFewParams, "too few parameters for %s", p.name)
	}
	if len(p.exact) > 0 {
		for _, e := range p.exact {
			if n == e {
				return nil
			}
		}
		return errAt(pos, ErrTooFewParams, "%s takes %s parameters", p.name, joinInts(p.exact, " or "))
	}
	return nil
}
