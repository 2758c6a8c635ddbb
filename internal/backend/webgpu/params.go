package webgpu

// CrossEntropyParams describes the local block of a cross-entropy
// evaluation. Pred holds Height local rows per sample. In label mode
// (LabelHeight > 0) truth holds LabelHeight class indices per sample, there
// are Classes classes, and local row r is global row RowShift + r*RowStride.
// In distribution mode truth has the same layout as pred.
type CrossEntropyParams struct {
	Height      int
	LabelHeight int
	Samples     int
	Classes     int
	RowShift    int
	RowStride   int
}
