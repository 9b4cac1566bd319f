package catalog

import (
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
)

// LoadFile reads a catalog document from path. Files ending in .gz are
// gunzipped first.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return Decode(r)
}

// Decode parses a catalog document:
//
//	{"products": [{"id", "name", "price", "category", "description", "badge"}],
//	 "classes":  [{"id", "name", "cost", "dates", "sessions", "description", "link"}]}
//
// Prices may be JSON numbers or strings. Unknown keys are ignored.
func Decode(r io.Reader) (*Store, error) {
	var (
		products []product.Product
		classes  []class.Offering
	)
	d := jx.Decode(r, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				products = append(products, p)
				return nil
			})
		case "classes":
			return d.Arr(func(d *jx.Decoder) error {
				o, err := decodeClass(d)
				if err != nil {
					return err
				}
				classes = append(classes, o)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return NewStore(products, classes), nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "category":
			p.Category, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "badge":
			p.Badge, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "product field %q", key)
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if p.ID <= 0 || p.Name == "" {
		return p, errors.Errorf("product %d: id and name are required", p.ID)
	}
	return p, nil
}

func decodeClass(d *jx.Decoder) (class.Offering, error) {
	var o class.Offering
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Int()
		case "name":
			o.Name, err = d.Str()
		case "cost":
			o.Cost, err = decodeDecimal(d)
		case "dates":
			err = d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				o.Dates = append(o.Dates, s)
				return err
			})
		case "sessions":
			o.Sessions, err = d.Int()
		case "description":
			o.Description, err = d.Str()
		case "link":
			o.Link, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "class field %q", key)
		}
		return nil
	})
	if err != nil {
		return o, err
	}
	if o.ID <= 0 || o.Name == "" {
		return o, errors.Errorf("class %d: id and name are required", o.ID)
	}
	return o, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse decimal")
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Errorf("negative amount %s", raw)
	}
	return v, nil
}
