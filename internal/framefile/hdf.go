package framefile

import (
	"fmt"
	"sort"

	"gonum.org/v1/hdf5"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// Dataset and attribute names inside every channel group.
const (
	hdfDataset    = "data"
	hdfStartTime  = "start_time"
	hdfDeltaT     = "delta_t"
	hdfSampleType = "sample_type"
	hdfOrder      = "channel_index"
)

// HDF5 is the .hdf/.h5 codec. Each channel is a group named after the
// channel holding a "data" dataset in the native sample type with start_time
// and delta_t attributes.
type HDF5 struct{}

var _ Codec = (*HDF5)(nil)

// Write implements Codec.
func (c *HDF5) Write(path string, names []string, list []series.TimeSeries) (err error) {
	if err := checkArgs(names, list); err != nil {
		return err
	}

	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer removeOnError(path, &err)
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for i, name := range names {
		g, err := f.CreateGroup(name)
		if err != nil {
			return fmt.Errorf("create group %q: %w", name, err)
		}
		err = writeDataset(g, i, list[i])
		if cerr := g.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write channel %q: %w", name, err)
		}
	}
	return nil
}

func hdfType(dt series.DType) (*hdf5.Datatype, error) {
	switch dt {
	case series.Float64:
		return hdf5.T_NATIVE_DOUBLE, nil
	case series.Float32:
		return hdf5.T_NATIVE_FLOAT, nil
	case series.Uint32:
		return hdf5.T_NATIVE_UINT32, nil
	case series.Int32:
		return hdf5.T_NATIVE_INT32, nil
	default:
		return nil, fmt.Errorf("unsupported sample type %v", dt)
	}
}

func writeDataset(g *hdf5.Group, index int, ts series.TimeSeries) error {
	dtype, err := hdfType(ts.DType())
	if err != nil {
		return err
	}
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(ts.Len())}, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	ds, err := g.CreateDataset(hdfDataset, dtype, space)
	if err != nil {
		return err
	}
	defer ds.Close()

	if ts.Len() > 0 {
		switch s := ts.(type) {
		case *series.Series[float64]:
			err = ds.Write(&s.Data)
		case *series.Series[float32]:
			err = ds.Write(&s.Data)
		case *series.Series[uint32]:
			err = ds.Write(&s.Data)
		case *series.Series[int32]:
			err = ds.Write(&s.Data)
		default:
			err = fmt.Errorf("unsupported series type %T", ts)
		}
		if err != nil {
			return err
		}
	}

	start, step := ts.StartTime(), ts.DeltaT()
	code, order := int32(ts.DType()), int32(index)
	if err := writeAttr(ds, hdfStartTime, &start, hdf5.T_NATIVE_DOUBLE); err != nil {
		return err
	}
	if err := writeAttr(ds, hdfDeltaT, &step, hdf5.T_NATIVE_DOUBLE); err != nil {
		return err
	}
	if err := writeAttr(ds, hdfSampleType, &code, hdf5.T_NATIVE_INT32); err != nil {
		return err
	}
	return writeAttr(ds, hdfOrder, &order, hdf5.T_NATIVE_INT32)
}

func writeAttr(ds *hdf5.Dataset, name string, v any, dtype *hdf5.Datatype) error {
	scalar, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer scalar.Close()

	attr, err := ds.CreateAttribute(name, dtype, scalar)
	if err != nil {
		return fmt.Errorf("create attribute %s: %w", name, err)
	}
	defer attr.Close()
	return attr.Write(v, dtype)
}

func readAttr(ds *hdf5.Dataset, name string, v any, dtype *hdf5.Datatype) error {
	attr, err := ds.OpenAttribute(name)
	if err != nil {
		return fmt.Errorf("open attribute %s: %w", name, err)
	}
	defer attr.Close()
	return attr.Read(v, dtype)
}

// Read implements Codec.
func (c *HDF5) Read(path string, names ...string) (*series.Set, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := f.NumObjects()
	if err != nil {
		return nil, err
	}

	type entry struct {
		name  string
		order int32
		ts    series.TimeSeries
	}
	entries := make([]entry, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := f.ObjectNameByIndex(i)
		if err != nil {
			return nil, err
		}
		g, err := f.OpenGroup(name)
		if err != nil {
			return nil, fmt.Errorf("open group %q: %w", name, err)
		}
		ts, order, err := readDataset(g)
		g.Close()
		if err != nil {
			return nil, fmt.Errorf("read channel %q: %w", name, err)
		}
		entries = append(entries, entry{name: name, order: order, ts: ts})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	set := series.NewSet()
	for _, e := range entries {
		if err := set.Add(e.name, e.ts); err != nil {
			return nil, err
		}
	}
	return selectChannels(path, set, names)
}

func readDataset(g *hdf5.Group) (series.TimeSeries, int32, error) {
	ds, err := g.OpenDataset(hdfDataset)
	if err != nil {
		return nil, 0, err
	}
	defer ds.Close()

	var start, step float64
	var code, order int32
	if err := readAttr(ds, hdfStartTime, &start, hdf5.T_NATIVE_DOUBLE); err != nil {
		return nil, 0, err
	}
	if err := readAttr(ds, hdfDeltaT, &step, hdf5.T_NATIVE_DOUBLE); err != nil {
		return nil, 0, err
	}
	if err := readAttr(ds, hdfSampleType, &code, hdf5.T_NATIVE_INT32); err != nil {
		return nil, 0, err
	}
	if err := readAttr(ds, hdfOrder, &order, hdf5.T_NATIVE_INT32); err != nil {
		return nil, 0, err
	}

	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, 0, err
	}
	if len(dims) != 1 {
		return nil, 0, fmt.Errorf("%w: expected a 1-d dataset, got %d dims", ErrCorrupt, len(dims))
	}
	n := int(dims[0])

	var ts series.TimeSeries
	switch series.DType(code) {
	case series.Float64:
		ts, err = readAs[float64](ds, n, start, step)
	case series.Float32:
		ts, err = readAs[float32](ds, n, start, step)
	case series.Uint32:
		ts, err = readAs[uint32](ds, n, start, step)
	case series.Int32:
		ts, err = readAs[int32](ds, n, start, step)
	default:
		err = fmt.Errorf("%w: unknown sample type %d", ErrCorrupt, code)
	}
	return ts, order, err
}

func readAs[T series.Sample](ds *hdf5.Dataset, n int, start, step float64) (series.TimeSeries, error) {
	s, err := series.New[T](n, start, step)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := ds.Read(&s.Data); err != nil {
			return nil, err
		}
	}
	return s, nil
}
