package fuzztests

import "testing"

const maxFuzzInput = 1 << 16

var seeds = []string{
	"",
	"package: [",
	"package: Empty\n",
	`package: Shapes
header:
  classes:
    - name: A
      fields: [{name: x, type: int}]
    - name: B
      params: [T]
      super: A
      fields: [{name: y, type: {ptr: T}}]
    - name: User
      fields: [{name: b, type: {ptr: {named: B, args: [char]}}}]
`,
	`package: Buffers
header:
  consts:
    - name: N
      value: {op: "-", args: [{op: "*", args: [4, {sizeOf: {array: {len: 10, of: int}}}]}, 4]}
  classes:
    - name: Holder
      fields: [{name: data, type: {array: {len: N, of: char}}}]
`,
	`package: Core
header:
  interfaces:
    - {name: Shape, messages: [{selector: area, returns: int}, {selector: name}]}
  classes:
    - name: Base
      implements: [Shape]
      fields: [{name: id, type: int}]
      methods: [{selector: key, returns: int}, {selector: name}, {selector: area, returns: int}]
    - name: Circle
      super: Base
      fields: [{name: radius, type: int}]
      methods: [{selector: radius, returns: int}, {selector: area, returns: int}]
`,
	`package: Loop
header:
  classes:
    - {name: A, super: B}
    - {name: B, super: A}
`,
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range seeds {
		f.Add([]byte(s))
	}
}

func clamp(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
