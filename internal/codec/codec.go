// Package codec encodes domain values as JSON with go-faster/jx. The same
// encodings serve HTTP bodies, Postgres JSONB columns, Redis values and
// Kafka messages. Prices are written as JSON numbers with their exact
// decimal digits.
package codec

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
	"github.com/xenking/kart-store/internal/domain/user"
)

// EncodeDecimal writes d as a JSON number.
func EncodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

// DecodeDecimal reads a JSON number or numeric string into a decimal.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse decimal %q", s)
	}
	return v, nil
}

// EncodeItem writes it as {"id","name","description","price"}.
func EncodeItem(e *jx.Encoder, it item.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	EncodeDecimal(e, it.Price)
	e.ObjEnd()
}

// DecodeItem reads an object written by EncodeItem. Unknown fields are skipped.
func DecodeItem(d *jx.Decoder) (item.Item, error) {
	var it item.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Int64()
		case "name":
			it.Name, err = d.Str()
		case "description":
			it.Description, err = d.Str()
		case "price":
			it.Price, err = DecodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return it, err
}

// EncodeItems writes a JSON array of items. A nil slice encodes as [].
func EncodeItems(e *jx.Encoder, items []item.Item) {
	e.ArrStart()
	for _, it := range items {
		EncodeItem(e, it)
	}
	e.ArrEnd()
}

// DecodeItems reads a JSON array of items. null decodes as an empty slice.
func DecodeItems(d *jx.Decoder) ([]item.Item, error) {
	items := []item.Item{}
	if d.Next() == jx.Null {
		return items, d.Null()
	}
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := DecodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

// MarshalItems returns the JSON array encoding of items.
func MarshalItems(items []item.Item) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	EncodeItems(e, items)
	return append([]byte(nil), e.Bytes()...)
}

// UnmarshalItems parses data written by MarshalItems.
func UnmarshalItems(data []byte) ([]item.Item, error) {
	items, err := DecodeItems(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return items, nil
}

// EncodeCart writes the cart with its entries and total. The version is
// included so storage payloads round-trip.
func EncodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("userId")
	e.Int64(c.UserID)
	e.FieldStart("items")
	EncodeItems(e, c.Items)
	e.FieldStart("total")
	EncodeDecimal(e, c.Total)
	e.FieldStart("version")
	e.Int64(c.Version)
	e.ObjEnd()
}

// DecodeCart reads an object written by EncodeCart.
func DecodeCart(d *jx.Decoder) (*cart.Cart, error) {
	c := &cart.Cart{Items: []item.Item{}}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Int64()
		case "userId":
			c.UserID, err = d.Int64()
		case "items":
			c.Items, err = DecodeItems(d)
		case "total":
			c.Total, err = DecodeDecimal(d)
		case "version":
			c.Version, err = d.Int64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MarshalCart returns the JSON encoding of c.
func MarshalCart(c *cart.Cart) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	EncodeCart(e, c)
	return append([]byte(nil), e.Bytes()...)
}

// UnmarshalCart parses data written by MarshalCart.
func UnmarshalCart(data []byte) (*cart.Cart, error) {
	c, err := DecodeCart(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return c, nil
}

// EncodeOrder writes the order snapshot.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("userId")
	e.Int64(o.UserID)
	e.FieldStart("items")
	EncodeItems(e, o.Items)
	e.FieldStart("total")
	EncodeDecimal(e, o.Total)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

// DecodeOrder reads an object written by EncodeOrder.
func DecodeOrder(d *jx.Decoder) (*order.Order, error) {
	o := &order.Order{Items: []item.Item{}}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Int64()
		case "userId":
			o.UserID, err = d.Int64()
		case "items":
			o.Items, err = DecodeItems(d)
		case "total":
			o.Total, err = DecodeDecimal(d)
		case "createdAt":
			var s string
			if s, err = d.Str(); err == nil {
				o.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// EncodeOrders writes a JSON array of orders.
func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		EncodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

// EncodeUser writes the public view of u. The password hash is never encoded.
func EncodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("cartId")
	e.Int64(u.CartID)
	e.ObjEnd()
}
