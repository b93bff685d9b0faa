package pss

import (
	"errors"
	"image/color"

	"github.com/superloach/pss/pkg/raster"
	"github.com/superloach/pss/pkg/transfo"
)

func init() {
	constructors = map[Rule]constructor{
		RuleDeclaration:       constructDeclaration,
		RuleStatementDef:      constructStatementDef,
		RuleCall:              constructCall,
		RulePage:              constructPage,
		RuleWorld:             constructWorld,
		RuleSelectWorld:       constructSelectWorld,
		RuleSetLayerOn:        constructSetLayers,
		RuleSetLayerOff:       constructSetLayers,
		RuleSetAnnotationIcon: constructSetAnnotationIcon,
	}

	calculators = map[Rule]calculator{
		RulePage:     calculatePage,
		RuleNumber:   calculateNumber,
		RuleString:   calculateString,
		RuleVariable: calculateVariable,
		RuleCall:     calculateCall,

		RuleImage:          calculateImage,
		RuleMosaic:         calculateMosaic,
		RuleOnDemandMosaic: calculateOnDemandMosaic,
		RuleTransform:      calculateTransform,
		RuleShapeImage:     calculateShapedImage,
		RuleFilterImage:    calculateFilteredImage,
		RuleTranslucent:    calculateTranslucent,
		RuleColorize:       calculateColorize,

		RuleImageShape:    calculateImageShape,
		RuleAlphaCube:     calculateAlphaCube,
		RuleRGBCube:       calculateRGBCube,
		RuleLUVCube:       calculateLUVCube,
		RuleGeorefContext: calculateGeorefContext,
		RuleImageContext:  calculateImageContext,
		RuleAlphaPalette:  calculateAlphaPalette,

		RuleRectangle:  calculateRectangle,
		RulePolygon:    calculatePolygon,
		RuleHoledShape: calculateShapeCombination,
		RuleUnion:      calculateShapeCombination,
		RuleIntersect:  calculateShapeCombination,

		RuleIdentity:            calculateIdentity,
		RuleRotation:            calculateRotation,
		RuleScaling:             calculateScaling,
		RuleTranslation:         calculateTranslation,
		RuleAffine:              calculateAffine,
		RuleProjective:          calculateProjective,
		RuleLocalProjectiveGrid: calculateLocalProjectiveGrid,
		RuleComposed:            calculateComposed,

		RuleContrast:            calculateContrast,
		RuleBrightness:          calculateBrightness,
		RuleConvolution:         calculateConvolution,
		RuleConvolution3:        calculateConvolution3,
		RuleAutoContrastStretch: calculateAutoContrastStretch,
		RuleContrastStretch:     calculateContrastStretch,
		RuleTint:                calculateTint,
		RuleInvert:              calculateInvert,
		RuleGamma:               calculateGamma,
	}
}

// engineErr converts an error of the raster engine or of the
// transformation models to an Err at pos.
func engineErr(pos position, err error) error {
	if e, isErr := err.(Err); isErr {
		return e
	}

	reason := ErrSystem
	switch {
	case errors.Is(err, transfo.ErrDegenerate):
		reason = ErrTransfoParameter
	case errors.Is(err, raster.ErrInvalidCoords):
		reason = ErrInvalidCoords
	case errors.Is(err, raster.ErrInvalidPolygon):
		reason = ErrInvalidPolygon
	case errors.Is(err, raster.ErrFileNotFound):
		reason = ErrFileNotFound
	case errors.Is(err, raster.ErrPageNotFound):
		reason = ErrPageNotFound
	case errors.Is(err, raster.ErrNoImage):
		reason = ErrNoImage
	case errors.Is(err, raster.ErrUnsupportedURL):
		reason = ErrInvalidURL
	case errors.Is(err, raster.ErrAlphaPaletteNotAllowed):
		reason = ErrAlphaPalette
	case errors.Is(err, raster.ErrAnnotationAlreadySet):
		reason = ErrInvalidObject
	}
	return Err{reason, err.Error(), pos}
}

// constructors

func constructDeclaration(s *Session, n *Node) error {
	slot, ok := s.parseScope.AddVariable(n.text, n.id, n.args[0])
	if !ok {
		return errAt(n.start, ErrAlreadyDefined, "'%s' is already defined", n.text)
	}
	n.slot = slot
	return nil
}

func constructStatementDef(s *Session, n *Node) error {
	def := n.def
	def.node = n.id
	def.last = n.id - 1
	if !s.parseScope.AddStatement(def.name, def) {
		return errAt(n.start, ErrAlreadyDefined, "'%s' is already defined", def.name)
	}
	return nil
}

func constructCall(s *Session, n *Node) error {
	params := len(n.def.scope.params)
	if len(n.args) > params {
		return errAt(s.pos(n.args[params]), ErrTooManyParams, "too many parameters for %s", n.text)
	}
	if len(n.args) < params {
		return errAt(n.start, ErrTooFewParams, "%s takes %d parameter(s)", n.text, params)
	}
	return nil
}

func constructPage(s *Session, n *Node) error {
	s.pages = append(s.pages, n.id)
	return nil
}

func constructWorld(s *Session, n *Node) error {
	id, err := s.integer(n.args[0])
	if err != nil {
		return err
	}
	model, err := s.transfoArg(n.args[1])
	if err != nil {
		return err
	}
	ref, err := s.integer(n.args[2])
	if err != nil {
		return err
	}

	if id < 1 || id >= MaxWorlds {
		return outOfRange(s.pos(n.args[0]), 1, MaxWorlds-1)
	}
	if ref < 0 || ref >= MaxWorlds {
		return outOfRange(s.pos(n.args[2]), 0, MaxWorlds-1)
	}

	if err := s.worlds.Define(id, model, ref); err != nil {
		e := err.(Err)
		if e.reason == ErrInvalidWorld {
			return e.at(s.pos(n.args[2]))
		}
		return e.at(s.pos(n.args[0]))
	}
	s.worldNodes = append(s.worldNodes, n.id)
	return nil
}

func constructSelectWorld(s *Session, n *Node) error {
	id, err := s.integer(n.args[0])
	if err != nil {
		return err
	}
	if !s.worlds.Defined(id) {
		return errAt(s.pos(n.args[0]), ErrInvalidWorld, "world %d is not defined", id)
	}

	s.currentWorld = id
	s.worldNodes = append(s.worldNodes, n.id)
	return nil
}

func constructSetLayers(s *Session, n *Node) error {
	ctx, err := s.contextArg(n.args[0])
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(n.args)-1)
	for _, a := range n.args[1:] {
		id, err := s.text(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	ctx.SetLayers(n.rule == RuleSetLayerOn, ids...)
	ctx.modifiers = append(ctx.modifiers, n.id)
	return nil
}

func constructSetAnnotationIcon(s *Session, n *Node) error {
	ctx, err := s.contextArg(n.args[0])
	if err != nil {
		return err
	}
	on, err := s.integerIn(n.args[1], 0, 1)
	if err != nil {
		return err
	}

	if err := ctx.SetAnnotationRasterization(on == 1); err != nil {
		return errAt(n.start, ErrInvalidObject, "annotation icon rasterization is already set")
	}
	ctx.modifiers = append(ctx.modifiers, n.id)
	return nil
}

// atoms

func calculatePage(s *Session, n *Node) (Value, error) {
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	if !r.Extent().IsDefined() {
		return Value{}, errAt(n.start, ErrImageHasNoSize, "page image has no size")
	}
	if len(n.args) > 1 {
		if _, err := s.text(n.args[1]); err != nil {
			return Value{}, err
		}
	}

	v, err := s.calculate(n.args[0])
	if err != nil {
		return Value{}, err
	}
	return s.forward(n, n.args[0], v), nil
}

func calculateNumber(s *Session, n *Node) (Value, error) {
	return numberValue(n.num), nil
}

func calculateString(s *Session, n *Node) (Value, error) {
	return textValue(n.text), nil
}

func calculateVariable(s *Session, n *Node) (Value, error) {
	if n.slot.decl == 0 {
		// parameters borrow the argument of the call
		return s.calculateArgument(n.slot)
	}
	v, err := s.calculateSlot(n.slot)
	if err != nil {
		return Value{}, err
	}
	return s.forward(n, n.slot.expr, v), nil
}

// images

func calculateImage(s *Session, n *Node) (Value, error) {
	name, err := s.text(n.args[0])
	if err != nil {
		return Value{}, err
	}
	url, ok := resolveURL(s.url, name)
	if !ok {
		return Value{}, errAt(s.pos(n.args[0]), ErrInvalidURL, "invalid url")
	}

	page := 0
	if len(n.args) > 1 {
		if page, err = s.integer(n.args[1]); err != nil {
			return Value{}, err
		}
	}

	var ctx *raster.Context
	if len(n.args) > 2 {
		c, err := s.contextArg(n.args[2])
		if err != nil {
			return Value{}, err
		}
		ctx = c.Context
	}

	var geo *raster.GeoreferenceContext
	if len(n.args) > 3 {
		v, err := s.calculate(n.args[3])
		if err != nil {
			return Value{}, err
		}
		g, ok := v.Object().(GeorefContextObject)
		if !ok {
			return Value{}, errAt(s.pos(n.args[3]), ErrInvalidObject, "georeference context expected")
		}
		geo = g.GeoreferenceContext
	}

	engine := s.interp.Engine
	f, err := engine.OpenImage(url, geo)
	if err != nil {
		return Value{}, engineErr(s.pos(n.args[0]), err)
	}
	if page < 0 || page >= f.Pages() {
		return Value{}, errAt(n.start, ErrPageNotFound, "no page %d in %s", page, url)
	}

	toBase, ok := s.worlds.ToBase(f.World())
	if !ok {
		return Value{}, errAt(n.start, ErrInvalidWorld, "world %d of %s is not defined", f.World(), url)
	}

	r, err := engine.LoadRaster(f, page, toBase, ctx)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{r}), nil
}

func calculateMosaic(s *Session, n *Node) (Value, error) {
	rasters := make([]*raster.Raster, len(n.args))
	for i, a := range n.args {
		r, err := s.rasterArg(a)
		if err != nil {
			return Value{}, err
		}
		rasters[i] = r
	}

	coordSys, err := s.worldOf(n)
	if err != nil {
		return Value{}, err
	}
	m, err := s.interp.Engine.BuildMosaic(coordSys, rasters)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{m}), nil
}

func calculateTransform(s *Session, n *Node) (Value, error) {
	model, err := s.transfoArg(n.args[1])
	if err != nil {
		return Value{}, err
	}
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	world, err := s.worldOf(n)
	if err != nil {
		return Value{}, err
	}

	t, err := s.interp.Engine.ApplyTransform(r, model, world)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{t}), nil
}

func calculateShapedImage(s *Session, n *Node) (Value, error) {
	shape, err := s.shapeArg(n.args[1])
	if err != nil {
		return Value{}, err
	}
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}

	shaped, err := s.interp.Engine.ApplyShape(r, shape)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	if !shaped.Extent().IsDefined() {
		return Value{}, errAt(n.start, ErrImageHasNoSize, "shaped image has no size")
	}
	return objectValue(RasterObject{shaped}), nil
}

func calculateFilteredImage(s *Session, n *Node) (Value, error) {
	f, err := s.filterArg(n.args[1])
	if err != nil {
		return Value{}, err
	}
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}

	filtered, err := s.interp.Engine.ApplyFilter(r, f)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{filtered}), nil
}

// calculateTranslucent accepts, in any order, one image, a global opacity,
// alpha ranges and alpha palettes. Palettes are merged, and cannot be
// mixed with ranges.
func calculateTranslucent(s *Session, n *Node) (Value, error) {
	var (
		r       *raster.Raster
		palette *raster.AlphaPalette
		ranges  []*raster.AlphaRange
		opacity = -1.0
	)

	for _, a := range n.args {
		v, err := s.calculate(a)
		if err != nil {
			return Value{}, err
		}

		switch v.kind {
		case NumberValue:
			if v.num < 0 || v.num > 100 {
				return Value{}, outOfRange(s.pos(a), 0, 100)
			}
			opacity = v.num
		case ObjectValue:
			switch o := v.handle.object.(type) {
			case RasterObject:
				if r != nil || palette != nil {
					return Value{}, errAt(s.pos(a), ErrInvalidObject, "unexpected image")
				}
				r = o.Raster
			case AlphaPaletteObject:
				if palette == nil {
					palette = o.Clone()
				} else {
					palette.Merge(o.AlphaPalette)
				}
			case AlphaRangeObject:
				ranges = append(ranges, o.AlphaRange)
			default:
				return Value{}, errAt(s.pos(a), ErrInvalidObject, "unexpected %s", o.kind())
			}
		default:
			return Value{}, typeMismatch(s.pos(a), "object or number")
		}
	}

	if r == nil {
		return Value{}, typeMismatch(n.start, "image")
	}
	if palette != nil && len(ranges) > 0 {
		return Value{}, errAt(n.start, ErrInvalidObject, "alpha palettes and alpha ranges cannot be mixed")
	}
	if palette == nil && len(ranges) == 0 && opacity < 0 {
		return Value{}, errAt(n.start, ErrTranslucentInfo, "no opacity, alpha range or alpha palette given")
	}

	t := raster.Translucency{Ranges: ranges, Palette: palette, Opacity: opacity}
	translucent, err := s.interp.Engine.ComposeAlpha(r, t)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{translucent}), nil
}

// calculateColorize colours bilevel images. Any other image is passed
// through unchanged.
func calculateColorize(s *Session, n *Node) (Value, error) {
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	if r.PixelBits() != 1 {
		v, err := s.calculate(n.args[0])
		if err != nil {
			return Value{}, err
		}
		return s.forward(n, n.args[0], v), nil
	}

	var levels [6]uint8
	for i := range levels {
		l, err := s.integerIn(n.args[i+1], 0, 255)
		if err != nil {
			return Value{}, err
		}
		levels[i] = uint8(l)
	}

	c0 := color.RGBA{levels[0], levels[1], levels[2], 255}
	c1 := color.RGBA{levels[3], levels[4], levels[5], 255}
	colorized, err := s.interp.Engine.Colorize(r, c0, c1)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{colorized}), nil
}

// image metadata

func calculateImageShape(s *Session, n *Node) (Value, error) {
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	return objectValue(ShapeObject{r.EffectiveShape()}), nil
}

func calculateAlphaCube(s *Session, n *Node) (Value, error) {
	colors, err := s.colorSetArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	opacity, err := s.numberIn(n.args[1], 0, 100)
	if err != nil {
		return Value{}, err
	}
	return objectValue(AlphaRangeObject{raster.NewAlphaRange(colors, opacity)}), nil
}

func calculateRGBCube(s *Session, n *Node) (Value, error) {
	var bounds [6]uint8
	for i := range bounds {
		b, err := s.integerIn(n.args[i], 0, 255)
		if err != nil {
			return Value{}, err
		}
		bounds[i] = uint8(b)
	}

	return objectValue(ColorSetObject{raster.RGBCube{
		RMin: bounds[0], RMax: bounds[1],
		GMin: bounds[2], GMax: bounds[3],
		BMin: bounds[4], BMax: bounds[5],
	}}), nil
}

func calculateLUVCube(s *Session, n *Node) (Value, error) {
	limits := [6][2]float64{
		{raster.LMin, raster.LMax}, {raster.LMin, raster.LMax},
		{raster.UMin, raster.UMax}, {raster.UMin, raster.UMax},
		{raster.VMin, raster.VMax}, {raster.VMin, raster.VMax},
	}

	var bounds [6]float64
	for i := range bounds {
		b, err := s.numberIn(n.args[i], limits[i][0], limits[i][1])
		if err != nil {
			return Value{}, err
		}
		bounds[i] = b
	}

	return objectValue(ColorSetObject{raster.LUVCube{
		LMin: bounds[0], LMax: bounds[1],
		UMin: bounds[2], UMax: bounds[3],
		VMin: bounds[4], VMax: bounds[5],
	}}), nil
}

func calculateGeorefContext(s *Session, n *Node) (Value, error) {
	ratio, err := s.number(n.args[0])
	if err != nil {
		return Value{}, err
	}
	sisterRatio, err := s.number(n.args[1])
	if err != nil {
		return Value{}, err
	}

	// the third flag is accepted and ignored
	var flags [4]bool
	for i, a := range []NodeID{n.args[2], n.args[3], n.args[4], n.args[5]} {
		f, err := s.integer(a)
		if err != nil {
			return Value{}, err
		}
		flags[i] = f != 0
	}
	if flags[2] {
		LogWarn(s.pos(n.args[4]).String(), "the third GEOREFCONTEXT flag has no effect")
	}

	return objectValue(GeorefContextObject{&raster.GeoreferenceContext{
		RatioToMeter:              ratio,
		SisterFileRatioToMeter:    sisterRatio,
		UseSisterFile:             flags[0],
		UsePCSLinearUnit:          flags[1],
		InterpretAsIntergraphUnit: flags[3],
	}}), nil
}

func calculateImageContext(s *Session, n *Node) (Value, error) {
	return objectValue(&ImageContextObject{Context: raster.NewContext()}), nil
}

// calculateAlphaPalette reads an opacity followed by palette indices and
// inclusive index ranges written lo:hi.
func calculateAlphaPalette(s *Session, n *Node) (Value, error) {
	opacity, err := s.numberIn(n.args[0], 0, 100)
	if err != nil {
		return Value{}, err
	}

	palette := raster.NewAlphaPalette(opacity)
	for _, a := range n.args[1:] {
		entry := s.doc.Node(a)
		if entry.rule != RuleRange {
			i, err := s.integerIn(a, 0, 255)
			if err != nil {
				return Value{}, err
			}
			palette.AddEntry(uint8(i))
			continue
		}

		lo, err := s.integerIn(entry.args[0], 0, 255)
		if err != nil {
			return Value{}, err
		}
		hi, err := s.integerIn(entry.args[1], 0, 255)
		if err != nil {
			return Value{}, err
		}
		if hi < lo {
			return Value{}, errAt(entry.start, ErrInvalidNumeric, "empty palette range %d:%d", lo, hi)
		}
		palette.AddRange(uint8(lo), uint8(hi))
	}
	return objectValue(AlphaPaletteObject{palette}), nil
}

// shapes

func calculateRectangle(s *Session, n *Node) (Value, error) {
	var c [4]float64
	for i := range c {
		f, err := s.number(n.args[i])
		if err != nil {
			return Value{}, err
		}
		c[i] = f
	}
	if c[0] > c[2] {
		return Value{}, errAt(s.pos(n.args[0]), ErrInvalidCoords, "x1 is greater than x2")
	}
	if c[1] > c[3] {
		return Value{}, errAt(s.pos(n.args[1]), ErrInvalidCoords, "y1 is greater than y2")
	}

	world, err := s.worldOf(n)
	if err != nil {
		return Value{}, err
	}
	shape, err := raster.Rectangle(c[0], c[1], c[2], c[3], world)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(ShapeObject{shape}), nil
}

func calculatePolygon(s *Session, n *Node) (Value, error) {
	world, err := s.worldOf(n)
	if err != nil {
		return Value{}, err
	}

	points := make([]raster.Point, 0, len(n.args)/2)
	for i := 0; i < len(n.args); i += 2 {
		x, err := s.number(n.args[i])
		if err != nil {
			return Value{}, err
		}
		if i+1 >= len(n.args) {
			return Value{}, errAt(n.start, ErrTooFewParams, "polygon coordinates come in pairs")
		}
		y, err := s.number(n.args[i+1])
		if err != nil {
			return Value{}, err
		}
		points = append(points, raster.Point{X: x, Y: y})
	}

	shape, err := raster.Polygon(points, world)
	if err != nil {
		return Value{}, errAt(n.start, ErrInvalidPolygon, "polygon must be closed and must not cross itself")
	}
	return objectValue(ShapeObject{shape}), nil
}

// calculateShapeCombination folds HOLEDSHAPE, UNION and INTERSECT over
// their arguments, left to right.
func calculateShapeCombination(s *Session, n *Node) (Value, error) {
	var result *raster.Shape
	for _, a := range n.args {
		shape, err := s.shapeArg(a)
		if err != nil {
			return Value{}, err
		}

		switch {
		case result == nil:
			result = shape
		case n.rule == RuleHoledShape:
			result = result.Subtract(shape)
		case n.rule == RuleUnion:
			result = result.Union(shape)
		default:
			result = result.Intersect(shape)
		}
	}
	return objectValue(ShapeObject{result}), nil
}

// transformations

func (s *Session) numbers(ids []NodeID) ([]float64, error) {
	fs := make([]float64, len(ids))
	for i, id := range ids {
		f, err := s.number(id)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}
	return fs, nil
}

func transfoValue(n *Node, m transfo.Model, err error) (Value, error) {
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(TransfoObject{m}), nil
}

func calculateIdentity(s *Session, n *Node) (Value, error) {
	return objectValue(TransfoObject{transfo.NewIdentity()}), nil
}

func calculateRotation(s *Session, n *Node) (Value, error) {
	p, err := s.numbers(n.args)
	if err != nil {
		return Value{}, err
	}
	return objectValue(TransfoObject{transfo.NewRotation(p[0], p[1], p[2])}), nil
}

func calculateScaling(s *Session, n *Node) (Value, error) {
	p, err := s.numbers(n.args)
	if err != nil {
		return Value{}, err
	}
	m, err := transfo.NewScaling(p[0], p[1], p[2], p[3])
	return transfoValue(n, m, err)
}

func calculateTranslation(s *Session, n *Node) (Value, error) {
	p, err := s.numbers(n.args)
	if err != nil {
		return Value{}, err
	}
	return objectValue(TransfoObject{transfo.NewTranslation(p[0], p[1])}), nil
}

func calculateAffine(s *Session, n *Node) (Value, error) {
	p, err := s.numbers(n.args)
	if err != nil {
		return Value{}, err
	}
	m, err := transfo.NewAffine(p[0], p[1], p[2], p[3], p[4], p[5])
	return transfoValue(n, m, err)
}

func calculateProjective(s *Session, n *Node) (Value, error) {
	p, err := s.numbers(n.args)
	if err != nil {
		return Value{}, err
	}
	var coefs [9]float64
	copy(coefs[:], p)
	m, err := transfo.NewProjective(coefs)
	return transfoValue(n, m, err)
}

func calculateLocalProjectiveGrid(s *Session, n *Node) (Value, error) {
	c, err := s.numbers(n.args[:4])
	if err != nil {
		return Value{}, err
	}
	tilesX, err := s.integer(n.args[4])
	if err != nil {
		return Value{}, err
	}
	if tilesX <= 0 {
		return Value{}, errAt(n.start, ErrTransfoParameter, "tile count must be positive")
	}
	tilesY, err := s.integer(n.args[5])
	if err != nil {
		return Value{}, err
	}
	if tilesY <= 0 {
		return Value{}, errAt(n.start, ErrTransfoParameter, "tile count must be positive")
	}

	global, err := s.transfoArg(n.args[6])
	if err != nil || !transfo.IsAffineCompatible(global) {
		return Value{}, errAt(n.start, ErrTransfoParameter, "global model must be affine")
	}

	tiles := make([]transfo.Model, 0, len(n.args)-7)
	for _, a := range n.args[7:] {
		t, err := s.transfoArg(a)
		if err != nil {
			return Value{}, errAt(n.start, ErrTransfoParameter, "tile models must be transformations")
		}
		tiles = append(tiles, t)
	}
	if len(tiles) != tilesX*tilesY {
		return Value{}, errAt(n.start, ErrTransfoParameter, "expected %d tile models, got %d", tilesX*tilesY, len(tiles))
	}

	extent := transfo.Extent{MinX: c[0], MinY: c[1], MaxX: c[2], MaxY: c[3]}
	m, err := transfo.NewLocalProjectiveGrid(extent, tilesX, tilesY, global, tiles)
	return transfoValue(n, m, err)
}

func calculateComposed(s *Session, n *Node) (Value, error) {
	models := make([]transfo.Model, len(n.args))
	for i, a := range n.args {
		m, err := s.transfoArg(a)
		if err != nil {
			return Value{}, err
		}
		models[i] = m
	}
	return objectValue(TransfoObject{transfo.Compose(models...)}), nil
}

// filters

func calculateContrast(s *Session, n *Node) (Value, error) {
	level, err := s.numberIn(n.args[0], -100, 100)
	if err != nil {
		return Value{}, err
	}
	return objectValue(FilterObject{raster.NewContrastFilter(level)}), nil
}

func calculateBrightness(s *Session, n *Node) (Value, error) {
	level, err := s.numberIn(n.args[0], -100, 100)
	if err != nil {
		return Value{}, err
	}
	return objectValue(FilterObject{raster.NewBrightnessFilter(level)}), nil
}

func calculateConvolution(s *Session, n *Node) (Value, error) {
	width, err := s.integer(n.args[0])
	if err != nil {
		return Value{}, err
	}
	height, err := s.integer(n.args[1])
	if err != nil {
		return Value{}, err
	}
	center, err := s.integer(n.args[2])
	if err != nil {
		return Value{}, err
	}
	if height < 1 || height > 64 {
		return Value{}, outOfRange(s.pos(n.args[1]), 1, 64)
	}
	if width < 1 || width > 64 {
		return Value{}, outOfRange(s.pos(n.args[0]), 1, 64)
	}

	size := width * height
	matrix := make([]int32, 0, size)
	for _, a := range n.args[3:] {
		if len(matrix) >= size {
			return Value{}, errAt(s.pos(a), ErrTooManyParams, "the matrix has %d cells", size)
		}
		cell, err := s.integer(a)
		if err != nil {
			return Value{}, err
		}
		matrix = append(matrix, int32(cell))
	}

	if center < 0 || center >= size {
		return Value{}, outOfRange(s.pos(n.args[2]), 0, float64(size-1))
	}
	return objectValue(FilterObject{
		raster.NewConvolutionFilter(width, height, center%width, center/width, matrix),
	}), nil
}

func calculateConvolution3(s *Session, n *Node) (Value, error) {
	var factors [3]int32
	for i := range factors {
		f, err := s.integer(n.args[i])
		if err != nil {
			return Value{}, err
		}
		factors[i] = int32(f)
	}
	return objectValue(FilterObject{raster.NewConvolution3Filter(factors[0], factors[1], factors[2])}), nil
}

func calculateAutoContrastStretch(s *Session, n *Node) (Value, error) {
	r, err := s.rasterArg(n.args[0])
	if err != nil {
		return Value{}, err
	}
	cutOff, err := s.numberIn(n.args[1], 0, 99)
	if err != nil {
		return Value{}, err
	}
	precision := 100
	if len(n.args) > 2 {
		if precision, err = s.integerIn(n.args[2], 1, 100); err != nil {
			return Value{}, err
		}
	}

	h, err := s.interp.Engine.Histogram(r, precision)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(FilterObject{raster.NewAutoContrastStretchFilter(h, int(cutOff))}), nil
}

func calculateContrastStretch(s *Session, n *Node) (Value, error) {
	left, err := s.integerIn(n.args[0], 0, 99)
	if err != nil {
		return Value{}, err
	}
	right, err := s.integerIn(n.args[1], 1, 100)
	if err != nil {
		return Value{}, err
	}
	if left >= right {
		return Value{}, errAt(s.pos(n.args[0]), ErrInvalidNumeric, "left cut-off must be less than the right one")
	}
	return objectValue(FilterObject{raster.NewContrastStretchFilter(left, right)}), nil
}

func calculateTint(s *Session, n *Node) (Value, error) {
	var levels [3]uint8
	for i, a := range n.args {
		l, err := s.integerIn(a, 0, 255)
		if err != nil {
			return Value{}, err
		}
		levels[i] = uint8(l)
	}
	return objectValue(FilterObject{raster.NewTintFilter(levels[0], levels[1], levels[2])}), nil
}

func calculateInvert(s *Session, n *Node) (Value, error) {
	return objectValue(FilterObject{raster.NewInvertFilter()}), nil
}

func calculateGamma(s *Session, n *Node) (Value, error) {
	level, err := s.number(n.args[0])
	if err != nil {
		return Value{}, err
	}
	return objectValue(FilterObject{raster.NewGammaFilter(level)}), nil
}
