package world

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/annel0/savestate/internal/vec"
)

var (
	// ErrInvalidMap ресурс карты ссылается на несуществующие элементы
	ErrInvalidMap = eris.New("invalid map resource")
)

// PicNameLen предел длины имени текстуры пола/потолка: столько байт отводит
// под имя формат снимка.
const PicNameLen = 8

// Resource неизменяемые исходные данные уровня (baseline).
// Служит эталоном для diff геометрии и источником записей расстановки.
type Resource struct {
	Name     string
	Vertices []Vertex
	Sectors  []Sector
	Sides    []Side
	Lines    []Line
	Things   []MapThing
	Polyobjs []Polyobj
}

// Validate проверяет ссылочную целостность ресурса
func (r *Resource) Validate() error {
	if len(r.Name) == 0 || len(r.Name) > 8 {
		return eris.Wrapf(ErrInvalidMap, "map name %q must be 1..8 bytes", r.Name)
	}
	for i, sd := range r.Sides {
		if sd.Sector < 0 || sd.Sector >= len(r.Sectors) {
			return eris.Wrapf(ErrInvalidMap, "side %d: sector %d out of range", i, sd.Sector)
		}
	}
	for i, ln := range r.Lines {
		if ln.V1 < 0 || ln.V1 >= len(r.Vertices) || ln.V2 < 0 || ln.V2 >= len(r.Vertices) {
			return eris.Wrapf(ErrInvalidMap, "line %d: vertex out of range", i)
		}
		for _, s := range ln.Sides {
			if s != NoSide && (s < 0 || s >= len(r.Sides)) {
				return eris.Wrapf(ErrInvalidMap, "line %d: side %d out of range", i, s)
			}
		}
		if ln.Sides[0] == NoSide {
			return eris.Wrapf(ErrInvalidMap, "line %d has no front side", i)
		}
	}
	for i := range r.Sectors {
		sec := &r.Sectors[i]
		if len(sec.FloorPic) > PicNameLen || len(sec.CeilingPic) > PicNameLen {
			return eris.Wrapf(ErrInvalidMap, "sector %d: flat name longer than %d bytes", i, PicNameLen)
		}
		for j, ff := range sec.FFloors {
			if ff.Master < 0 || ff.Master >= len(r.Lines) {
				return eris.Wrapf(ErrInvalidMap, "sector %d ffloor %d: master line %d out of range", i, j, ff.Master)
			}
		}
	}
	if len(r.Sectors) > 0xFFFE || len(r.Lines) > 0x7FFF {
		return eris.Wrapf(ErrInvalidMap, "too many sectors (%d) or lines (%d)", len(r.Sectors), len(r.Lines))
	}
	return nil
}

// Файловый формат карты (YAML). Высоты и смещения: целые единицы карты.
type mapFile struct {
	Name     string        `yaml:"name"`
	Vertices []vertexFile  `yaml:"vertices"`
	Sectors  []sectorFile  `yaml:"sectors"`
	Sides    []sideFile    `yaml:"sides"`
	Lines    []lineFile    `yaml:"lines"`
	Things   []thingFile   `yaml:"things"`
	Polyobjs []polyobjFile `yaml:"polyobjs"`
}

type vertexFile struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type ffloorFile struct {
	Master int    `yaml:"master"`
	Flags  uint32 `yaml:"flags"`
	Alpha  int32  `yaml:"alpha"`
}

type sectorFile struct {
	Floor      int          `yaml:"floor"`
	Ceiling    int          `yaml:"ceiling"`
	FloorPic   string       `yaml:"floorpic"`
	CeilingPic string       `yaml:"ceilingpic"`
	Light      int16        `yaml:"light"`
	Special    int16        `yaml:"special"`
	Tag        int16        `yaml:"tag"`
	FFloors    []ffloorFile `yaml:"ffloors"`
}

type sideFile struct {
	XOffset int   `yaml:"xoffset"`
	YOffset int   `yaml:"yoffset"`
	Top     int32 `yaml:"top"`
	Bottom  int32 `yaml:"bottom"`
	Mid     int32 `yaml:"mid"`
	Sector  int   `yaml:"sector"`
}

type lineFile struct {
	V1         int      `yaml:"v1"`
	V2         int      `yaml:"v2"`
	Flags      int16    `yaml:"flags"`
	Special    int16    `yaml:"special"`
	Tag        int16    `yaml:"tag"`
	Front      int      `yaml:"front"`
	Back       *int     `yaml:"back"`
	Args       []int32  `yaml:"args"`
	StringArgs []string `yaml:"stringargs"`
}

type thingFile struct {
	X       int16  `yaml:"x"`
	Y       int16  `yaml:"y"`
	Z       int16  `yaml:"z"`
	Angle   int16  `yaml:"angle"`
	Type    uint16 `yaml:"type"`
	Options uint16 `yaml:"options"`
}

type polyobjFile struct {
	ID    int32 `yaml:"id"`
	X     int   `yaml:"x"`
	Y     int   `yaml:"y"`
	Angle int   `yaml:"angle"`
}

// ParseMap разбирает YAML описание карты
func ParseMap(data []byte) (*Resource, error) {
	var mf mapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, eris.Wrap(err, "разбор карты")
	}

	res := &Resource{Name: mf.Name}
	for _, v := range mf.Vertices {
		res.Vertices = append(res.Vertices, Vertex{X: vec.FromInt(v.X), Y: vec.FromInt(v.Y)})
	}
	for _, s := range mf.Sectors {
		sec := Sector{
			FloorHeight:   vec.FromInt(s.Floor),
			CeilingHeight: vec.FromInt(s.Ceiling),
			FloorPic:      s.FloorPic,
			CeilingPic:    s.CeilingPic,
			LightLevel:    s.Light,
			Special:       s.Special,
			Tag:           s.Tag,
		}
		for _, ff := range s.FFloors {
			sec.FFloors = append(sec.FFloors, &FFloor{Master: ff.Master, Flags: ff.Flags, Alpha: ff.Alpha})
		}
		res.Sectors = append(res.Sectors, sec)
	}
	for _, sd := range mf.Sides {
		res.Sides = append(res.Sides, Side{
			TextureOffset: vec.FromInt(sd.XOffset),
			RowOffset:     vec.FromInt(sd.YOffset),
			TopTexture:    sd.Top,
			BottomTexture: sd.Bottom,
			MidTexture:    sd.Mid,
			Sector:        sd.Sector,
		})
	}
	for i, lf := range mf.Lines {
		ln := Line{
			V1:      lf.V1,
			V2:      lf.V2,
			Flags:   lf.Flags,
			Special: lf.Special,
			Tag:     lf.Tag,
			Sides:   [2]int{lf.Front, NoSide},
		}
		if lf.Back != nil {
			ln.Sides[1] = *lf.Back
		}
		if len(lf.Args) > NumLineArgs || len(lf.StringArgs) > NumLineStringArgs {
			return nil, eris.Wrapf(ErrInvalidMap, "line %d: too many args", i)
		}
		copy(ln.Args[:], lf.Args)
		copy(ln.StringArgs[:], lf.StringArgs)
		res.Lines = append(res.Lines, ln)
	}
	for _, t := range mf.Things {
		res.Things = append(res.Things, MapThing{X: t.X, Y: t.Y, Z: t.Z, Angle: t.Angle, Type: t.Type, Options: t.Options})
	}
	for _, p := range mf.Polyobjs {
		res.Polyobjs = append(res.Polyobjs, Polyobj{
			ID:    p.ID,
			Pos:   vec.Vec2{X: vec.FromInt(p.X), Y: vec.FromInt(p.Y)},
			Angle: vec.AngleFromDegrees(p.Angle),
		})
	}

	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// LoadMapFile читает ресурс карты с диска
func LoadMapFile(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "чтение карты %s", path)
	}
	res, err := ParseMap(data)
	if err != nil {
		return nil, eris.Wrapf(err, "карта %s", path)
	}
	return res, nil
}
