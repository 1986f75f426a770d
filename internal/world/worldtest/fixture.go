// Package worldtest собирает небольшие карты для тестов архиватора.
package worldtest

import (
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
)

// Resource возвращает карту из шестнадцати секторов (у сектора 3 два дополнительных пола),
// четырёх двусторонних линий и одного полиобъекта.
func Resource() *world.Resource {
	res := &world.Resource{Name: "TEST01"}
	for i := 0; i < 4; i++ {
		res.Vertices = append(res.Vertices, world.Vertex{X: vec.FromInt(i * 64), Y: vec.FromInt(i * 32)})
	}
	for i := 0; i < 16; i++ {
		res.Sectors = append(res.Sectors, world.Sector{
			FloorHeight:   vec.FromInt(i * 8),
			CeilingHeight: vec.FromInt(128 + i*8),
			FloorPic:      "FLOOR0_1",
			CeilingPic:    "F_SKY1",
			LightLevel:    192,
			Tag:           int16(i % 4),
		})
	}
	res.Sectors[3].FFloors = []*world.FFloor{
		{Master: 1, Flags: 0x1, Alpha: 255},
		{Master: 2, Flags: 0x3, Alpha: 128},
	}
	for i := 0; i < 8; i++ {
		res.Sides = append(res.Sides, world.Side{
			TextureOffset: vec.FromInt(i),
			TopTexture:    1,
			MidTexture:    int32(i),
			Sector:        i % len(res.Sectors),
		})
	}
	for i := 0; i < 4; i++ {
		res.Lines = append(res.Lines, world.Line{
			V1:    i,
			V2:    (i + 1) % 4,
			Flags: 1,
			Tag:   int16(i),
			Sides: [2]int{i * 2, i*2 + 1},
		})
	}
	res.Things = []world.MapThing{
		{X: 64, Y: 64, Angle: 90, Type: 1},
		{X: 128, Y: 32, Angle: 180, Type: 3004},
		{X: 96, Y: 96, Type: 300},
		{X: 32, Y: 128, Type: 1705},
	}
	res.Polyobjs = []world.Polyobj{
		{ID: 7, Pos: vec.Vec2{X: vec.FromInt(100), Y: vec.FromInt(50)}},
	}
	return res
}

// Map возвращает живую карту поверх Resource
func Map() *world.Map {
	return world.NewMap(Resource())
}
