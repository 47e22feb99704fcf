package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		KindHookFunc(),
		DTypeHookFunc(),
		StorageTypeHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)),
}

// KindHookFunc decodes optimiser names, e.g., "proxgroupadagrad", into an optimisation.Kind.
func KindHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(optimisation.ProxGroupAdaGrad) {
			return data, nil
		}
		return optimisation.ParseKind(data.(string))
	}
}

// DTypeHookFunc decodes "float32" and "float64" into a tensor.DType.
func DTypeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(tensor.Float32) {
			return data, nil
		}
		return tensor.ParseDType(data.(string))
	}
}

// StorageTypeHookFunc decodes "default" and "row_sparse" into a tensor.StorageType.
func StorageTypeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(tensor.StorageDefault) {
			return data, nil
		}
		return tensor.ParseStorageType(data.(string))
	}
}
