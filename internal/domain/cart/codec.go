package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrCorrupt is returned by Decode when the payload parses but breaks a cart
// invariant.
var ErrCorrupt = errors.New("corrupt cart payload")

// Encode serializes items as a JSON array of
// {"id":int,"name":string,"price":number,"quantity":int}.
func Encode(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.RawStr(it.Price.String())
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// Decode parses a payload produced by Encode. Unknown fields are skipped.
// Payloads with duplicate ids, non-positive quantities or negative prices are
// rejected with ErrCorrupt.
func Decode(data []byte) ([]LineItem, error) {
	var items []LineItem
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if d.Next() != jx.Invalid {
		return nil, errors.Wrap(ErrCorrupt, "trailing data after cart")
	}

	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ProductID]; dup {
			return nil, errors.Wrapf(ErrCorrupt, "duplicate product %d", it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		if it.Quantity < 1 {
			return nil, errors.Wrapf(ErrCorrupt, "product %d has quantity %d", it.ProductID, it.Quantity)
		}
		if it.Price.IsNegative() {
			return nil, errors.Wrapf(ErrCorrupt, "product %d has negative price", it.ProductID)
		}
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	var (
		it       LineItem
		hasID    bool
		hasPrice bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			it.ProductID = v
			hasID = true
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			it.Name = v
		case "price":
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, "price")
			}
			it.Price = price
			hasPrice = true
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			it.Quantity = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return LineItem{}, err
	}
	if !hasID || !hasPrice {
		return LineItem{}, errors.Wrap(ErrCorrupt, "line item missing id or price")
	}
	return it, nil
}
